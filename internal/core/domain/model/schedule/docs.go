// Package schedule provides the cron-style schedule value object of a job.
//
// A Spec names a minute, an hour and a day of month; month and weekday are
// always wildcards. It renders to, and parses from, the five-field cron text
// stored with every job ("30 14 3 * *"). Occurrence arithmetic (next and
// previous matching instants) is not done here: it belongs to the Calendar
// port so the operating timezone stays an infrastructure concern.
package schedule
