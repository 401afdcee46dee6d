package steps

import (
	"github.com/c360studio/aos/fees"
)

func feeSet(code string, amount float64) fees.Annotations {
	return fees.Annotations{code: {FeeCode: code, Amount: amount}}
}

// echoTexts returns the looked-up key, which lets tests assert on catalog
// keys without a catalog.
type echoTexts struct{}

func (echoTexts) Lookup(_, step, key string) string { return step + ":" + key }
