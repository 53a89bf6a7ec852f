package notion

import "strings"

const multiSelectJoinSeparatorConstant = ", "

func firstRunText(runs []RichTextItem) string {
	if len(runs) == 0 {
		return ""
	}
	return runs[0].PlainText
}

// TitleText returns the first run of the named title property.
func TitleText(properties map[string]PropertyValue, propertyName string) string {
	return firstRunText(properties[propertyName].Title)
}

// RichTextValue returns the first run of the named rich text property.
func RichTextValue(properties map[string]PropertyValue, propertyName string) string {
	return firstRunText(properties[propertyName].RichText)
}

// SelectName returns the select option name, or a comma list for multi-select.
func SelectName(properties map[string]PropertyValue, propertyName string) string {
	propertyValue := properties[propertyName]
	if propertyValue.Select != nil {
		return propertyValue.Select.Name
	}
	if len(propertyValue.MultiSelect) > 0 {
		optionNames := make([]string, 0, len(propertyValue.MultiSelect))
		for _, option := range propertyValue.MultiSelect {
			optionNames = append(optionNames, option.Name)
		}
		return strings.Join(optionNames, multiSelectJoinSeparatorConstant)
	}
	return ""
}

// DateStart returns the start timestamp of the named date property, empty when unset.
func DateStart(properties map[string]PropertyValue, propertyName string) string {
	propertyValue, exists := properties[propertyName]
	if !exists || propertyValue.Date == nil {
		return ""
	}
	return propertyValue.Date.Start
}

// ConsoleValue reads a property that may be a select or rich text, preferring the select name.
func ConsoleValue(properties map[string]PropertyValue, propertyName string) string {
	if selected := SelectName(properties, propertyName); len(selected) > 0 {
		return selected
	}
	return RichTextValue(properties, propertyName)
}

// AnyText tries title, rich text, then select name in that order.
func AnyText(properties map[string]PropertyValue, propertyName string) string {
	if titleValue := TitleText(properties, propertyName); len(titleValue) > 0 {
		return titleValue
	}
	if richTextValue := RichTextValue(properties, propertyName); len(richTextValue) > 0 {
		return richTextValue
	}
	return SelectName(properties, propertyName)
}
