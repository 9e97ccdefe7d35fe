package domain

// RecurrencePeriod is how often a recurring definition spawns occurrences.
type RecurrencePeriod string

const (
	PeriodWeekly    RecurrencePeriod = "weekly"
	PeriodMonthly   RecurrencePeriod = "monthly"
	PeriodQuarterly RecurrencePeriod = "quarterly"
	PeriodYearly    RecurrencePeriod = "yearly"
)

// Valid reports whether p is a known recurrence period.
func (p RecurrencePeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// InvoicePeriodValid reports whether p is allowed on recurring invoices.
// Invoices recur monthly, quarterly, or yearly; weekly invoicing is not a thing.
func (p RecurrencePeriod) InvoicePeriodValid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}
