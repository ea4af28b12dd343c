package domain

// Sample is the outcome of one fetch attempt: a parsed price or nothing.
type Sample struct {
	Value  Price
	OK     bool
	Reason string // why the sample is unavailable; empty when OK
}

// SampleOf returns an available sample.
func SampleOf(p Price) Sample {
	return Sample{Value: p, OK: true}
}

// Unavailable returns a sample carrying no value.
func Unavailable(reason string) Sample {
	return Sample{Reason: reason}
}
