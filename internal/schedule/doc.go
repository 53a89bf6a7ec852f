// Package schedule runs audits on a cron schedule. The scheduler keeps
// running after individual audit failures; a failed scheduled run is
// logged and the next trigger proceeds normally.
package schedule
