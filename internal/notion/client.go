package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Defaults applied when ClientConfiguration fields are left unset.
const (
	DefaultBaseURL       = "https://api.notion.com/v1"
	DefaultNotionVersion = "2022-06-28"
)

const (
	defaultHTTPTimeoutConstant            = 30 * time.Second
	defaultMaxRetryCountConstant          = 5
	defaultRequestsPerSecondConstant      = 3.0
	defaultRequestBurstConstant           = 3
	defaultInitialBackoffConstant         = 500 * time.Millisecond
	defaultMaxBackoffConstant             = 30 * time.Second
	databaseQueryPageSizeConstant         = 100
	databaseQueryPathTemplateConstant     = "/databases/%s/query"
	pagePathTemplateConstant              = "/pages/%s"
	authorizationHeaderNameConstant       = "Authorization"
	authorizationHeaderTemplateConstant   = "Bearer %s"
	notionVersionHeaderNameConstant       = "Notion-Version"
	contentTypeHeaderNameConstant         = "Content-Type"
	retryAfterHeaderNameConstant          = "Retry-After"
	jsonContentTypeConstant               = "application/json"
	tokenFieldNameConstant                = "access_token"
	databaseIdentifierFieldNameConstant   = "database_identifier"
	pageIdentifierFieldNameConstant       = "page_identifier"
	propertyChangesFieldNameConstant      = "property_changes"
	recordVisitorFieldNameConstant        = "record_visitor"
	recordVisitorRequiredMessageConstant  = "record visitor required"
	responseBodyDetailLimitConstant       = 512
)

// ClientConfiguration tunes transport, throttling, and retry behavior.
type ClientConfiguration struct {
	BaseURL                string
	NotionVersion          string
	HTTPTimeout            time.Duration
	MaxRetryCount          int
	RequestsPerSecond      float64
	RequestBurst           int
	InitialBackoffInterval time.Duration
	MaxBackoffInterval     time.Duration
}

// DefaultClientConfiguration returns the production defaults for the hosted service.
func DefaultClientConfiguration() ClientConfiguration {
	return ClientConfiguration{
		BaseURL:                DefaultBaseURL,
		NotionVersion:          DefaultNotionVersion,
		HTTPTimeout:            defaultHTTPTimeoutConstant,
		MaxRetryCount:          defaultMaxRetryCountConstant,
		RequestsPerSecond:      defaultRequestsPerSecondConstant,
		RequestBurst:           defaultRequestBurstConstant,
		InitialBackoffInterval: defaultInitialBackoffConstant,
		MaxBackoffInterval:     defaultMaxBackoffConstant,
	}
}

func (configuration ClientConfiguration) withDefaults() ClientConfiguration {
	defaults := DefaultClientConfiguration()
	if len(strings.TrimSpace(configuration.BaseURL)) == 0 {
		configuration.BaseURL = defaults.BaseURL
	}
	if len(strings.TrimSpace(configuration.NotionVersion)) == 0 {
		configuration.NotionVersion = defaults.NotionVersion
	}
	if configuration.HTTPTimeout <= 0 {
		configuration.HTTPTimeout = defaults.HTTPTimeout
	}
	if configuration.MaxRetryCount <= 0 {
		configuration.MaxRetryCount = defaults.MaxRetryCount
	}
	if configuration.RequestsPerSecond <= 0 {
		configuration.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if configuration.RequestBurst <= 0 {
		configuration.RequestBurst = defaults.RequestBurst
	}
	if configuration.InitialBackoffInterval <= 0 {
		configuration.InitialBackoffInterval = defaults.InitialBackoffInterval
	}
	if configuration.MaxBackoffInterval <= 0 {
		configuration.MaxBackoffInterval = defaults.MaxBackoffInterval
	}
	return configuration
}

// Client issues authenticated requests against the hosted database service.
type Client struct {
	httpClient             *http.Client
	baseURL                string
	accessToken            string
	notionVersion          string
	requestLimiter         *rate.Limiter
	maxRetryCount          int
	initialBackoffInterval time.Duration
	maxBackoffInterval     time.Duration
}

// NewClient constructs a Client for the provided access token.
func NewClient(accessToken string, configuration ClientConfiguration) *Client {
	configuration = configuration.withDefaults()
	return &Client{
		httpClient:             &http.Client{Timeout: configuration.HTTPTimeout},
		baseURL:                strings.TrimSuffix(configuration.BaseURL, "/"),
		accessToken:            accessToken,
		notionVersion:          configuration.NotionVersion,
		requestLimiter:         rate.NewLimiter(rate.Limit(configuration.RequestsPerSecond), configuration.RequestBurst),
		maxRetryCount:          configuration.MaxRetryCount,
		initialBackoffInterval: configuration.InitialBackoffInterval,
		maxBackoffInterval:     configuration.MaxBackoffInterval,
	}
}

// ForEachDatabaseRecord streams every record matching the filter in fetch order.
//
// Pagination follows the service cursor until no further pages remain. A page
// that fails to fetch yields no records from that page; the caller restarts
// from the beginning by invoking the method again.
func (client *Client) ForEachDatabaseRecord(executionContext context.Context, databaseIdentifier string, filter QueryFilter, visitRecord func(Page) error) error {
	if len(strings.TrimSpace(databaseIdentifier)) == 0 {
		return InvalidInputError{FieldName: databaseIdentifierFieldNameConstant, Message: databaseIdentifierRequiredMessageConstant}
	}
	if visitRecord == nil {
		return InvalidInputError{FieldName: recordVisitorFieldNameConstant, Message: recordVisitorRequiredMessageConstant}
	}
	if validationError := client.validateToken(); validationError != nil {
		return validationError
	}

	queryPath := fmt.Sprintf(databaseQueryPathTemplateConstant, databaseIdentifier)
	startCursor := ""

	for {
		queryRequest := databaseQueryRequest{
			PageSize:    databaseQueryPageSizeConstant,
			Filter:      filter,
			StartCursor: startCursor,
		}

		responseBody, requestError := client.executeRequest(executionContext, http.MethodPost, queryPath, queryRequest)
		if requestError != nil {
			return requestError
		}

		var queryResponse databaseQueryResponse
		if decodeError := json.Unmarshal(responseBody, &queryResponse); decodeError != nil {
			return RemoteError{Cause: decodeError}
		}

		for _, record := range queryResponse.Results {
			if visitError := visitRecord(record); visitError != nil {
				return visitError
			}
		}

		if !queryResponse.HasMore || len(queryResponse.NextCursor) == 0 {
			return nil
		}
		startCursor = queryResponse.NextCursor
	}
}

// QueryDatabase fetches every record matching the filter in fetch order.
func (client *Client) QueryDatabase(executionContext context.Context, databaseIdentifier string, filter QueryFilter) ([]Page, error) {
	var records []Page
	collectError := client.ForEachDatabaseRecord(executionContext, databaseIdentifier, filter, func(record Page) error {
		records = append(records, record)
		return nil
	})
	if collectError != nil {
		return nil, collectError
	}
	return records, nil
}

// GetPage fetches the current state of a single record.
func (client *Client) GetPage(executionContext context.Context, pageIdentifier string) (Page, error) {
	if len(strings.TrimSpace(pageIdentifier)) == 0 {
		return Page{}, InvalidInputError{FieldName: pageIdentifierFieldNameConstant, Message: pageIdentifierRequiredMessageConstant}
	}
	if validationError := client.validateToken(); validationError != nil {
		return Page{}, validationError
	}

	responseBody, requestError := client.executeRequest(executionContext, http.MethodGet, fmt.Sprintf(pagePathTemplateConstant, pageIdentifier), nil)
	if requestError != nil {
		return Page{}, requestError
	}

	var record Page
	if decodeError := json.Unmarshal(responseBody, &record); decodeError != nil {
		return Page{}, RemoteError{Cause: decodeError}
	}
	return record, nil
}

// UpdatePageProperties overwrites the named properties of a record.
//
// The write replaces each named property wholesale, so re-applying the same
// change set is a no-op on the stored state and retries are safe.
func (client *Client) UpdatePageProperties(executionContext context.Context, pageIdentifier string, propertyChanges PropertyChanges) error {
	if len(strings.TrimSpace(pageIdentifier)) == 0 {
		return InvalidInputError{FieldName: pageIdentifierFieldNameConstant, Message: pageIdentifierRequiredMessageConstant}
	}
	if len(propertyChanges) == 0 {
		return InvalidInputError{FieldName: propertyChangesFieldNameConstant, Message: propertyChangesRequiredMessageConstant}
	}
	if validationError := client.validateToken(); validationError != nil {
		return validationError
	}

	updateRequest := pageUpdateRequest{Properties: propertyChanges}
	_, requestError := client.executeRequest(executionContext, http.MethodPatch, fmt.Sprintf(pagePathTemplateConstant, pageIdentifier), updateRequest)
	return requestError
}

func (client *Client) validateToken() error {
	if len(strings.TrimSpace(client.accessToken)) == 0 {
		return InvalidInputError{FieldName: tokenFieldNameConstant, Message: tokenNotConfiguredMessageConstant}
	}
	return nil
}

func (client *Client) executeRequest(executionContext context.Context, method string, path string, requestPayload any) ([]byte, error) {
	var encodedPayload []byte
	if requestPayload != nil {
		var encodeError error
		encodedPayload, encodeError = json.Marshal(requestPayload)
		if encodeError != nil {
			return nil, RemoteError{Cause: encodeError}
		}
	}

	backoffIntervals := backoff.NewExponentialBackOff()
	backoffIntervals.InitialInterval = client.initialBackoffInterval
	backoffIntervals.MaxInterval = client.maxBackoffInterval
	backoffIntervals.MaxElapsedTime = 0
	backoffIntervals.Reset()

	attemptCount := 0
	for {
		attemptCount++

		if waitError := client.requestLimiter.Wait(executionContext); waitError != nil {
			return nil, RemoteError{Cause: waitError}
		}

		responseStatus, responseHeader, responseBody, transportError := client.performAttempt(executionContext, method, path, encodedPayload)
		if transportError != nil {
			return nil, RemoteError{Cause: transportError}
		}

		switch {
		case responseStatus >= http.StatusOK && responseStatus < http.StatusMultipleChoices:
			return responseBody, nil
		case responseStatus == http.StatusUnauthorized || responseStatus == http.StatusForbidden:
			return nil, AuthError{StatusCode: responseStatus, Detail: truncateDetail(responseBody)}
		case responseStatus == http.StatusTooManyRequests:
			if attemptCount-1 >= client.maxRetryCount {
				return nil, TransientServiceError{StatusCode: responseStatus, Attempts: attemptCount}
			}
			if sleepError := client.sleepBeforeRetry(executionContext, backoffIntervals.NextBackOff(), responseHeader); sleepError != nil {
				return nil, RemoteError{Cause: sleepError}
			}
		default:
			return nil, RemoteError{StatusCode: responseStatus, Detail: truncateDetail(responseBody)}
		}
	}
}

func (client *Client) performAttempt(executionContext context.Context, method string, path string, encodedPayload []byte) (int, http.Header, []byte, error) {
	var payloadReader io.Reader
	if encodedPayload != nil {
		payloadReader = bytes.NewReader(encodedPayload)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, client.baseURL+path, payloadReader)
	if requestError != nil {
		return 0, nil, nil, requestError
	}

	request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationHeaderTemplateConstant, client.accessToken))
	request.Header.Set(notionVersionHeaderNameConstant, client.notionVersion)
	if encodedPayload != nil {
		request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	}

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return 0, nil, nil, responseError
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return 0, nil, nil, readError
	}

	return response.StatusCode, response.Header, responseBody, nil
}

func (client *Client) sleepBeforeRetry(executionContext context.Context, backoffInterval time.Duration, responseHeader http.Header) error {
	retryInterval := backoffInterval
	if retryAfterInterval := parseRetryAfter(responseHeader); retryAfterInterval > retryInterval {
		retryInterval = retryAfterInterval
	}
	if retryInterval > client.maxBackoffInterval {
		retryInterval = client.maxBackoffInterval
	}

	retryTimer := time.NewTimer(retryInterval)
	defer retryTimer.Stop()

	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-retryTimer.C:
		return nil
	}
}

func parseRetryAfter(responseHeader http.Header) time.Duration {
	if responseHeader == nil {
		return 0
	}
	retryAfterValue := strings.TrimSpace(responseHeader.Get(retryAfterHeaderNameConstant))
	if len(retryAfterValue) == 0 {
		return 0
	}
	retryAfterSeconds, parseError := strconv.ParseFloat(retryAfterValue, 64)
	if parseError != nil || retryAfterSeconds <= 0 {
		return 0
	}
	return time.Duration(retryAfterSeconds * float64(time.Second))
}

func truncateDetail(responseBody []byte) string {
	detail := strings.TrimSpace(string(responseBody))
	if len(detail) > responseBodyDetailLimitConstant {
		detail = detail[:responseBodyDetailLimitConstant]
	}
	return detail
}
