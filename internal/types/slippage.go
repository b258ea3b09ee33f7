// internal/types/slippage.go
package types

import (
	"fmt"
	"math"
	"math/bits"
)

// MaxSlippageBps: 100% в базисных пунктах.
const MaxSlippageBps = 10_000

// ValidateSlippage проверяет допуск проскальзывания в базисных пунктах.
func ValidateSlippage(bps uint16) error {
	if bps > MaxSlippageBps {
		return fmt.Errorf("%w: %d bps exceeds %d", ErrInvalidSlippage, bps, MaxSlippageBps)
	}
	return nil
}

// SlippageBpsFromPercent переводит процент (1.5 = 1.5%) в базисные пункты.
func SlippageBpsFromPercent(percent float64) (uint16, error) {
	if percent < 0 || percent > 100 || math.IsNaN(percent) {
		return 0, fmt.Errorf("%w: %.4f%%", ErrInvalidSlippage, percent)
	}
	return uint16(math.Round(percent * 100)), nil
}

// ApplySlippage уменьшает amount на bps, округляя вниз.
func ApplySlippage(amount uint64, bps uint16) uint64 {
	if bps >= MaxSlippageBps {
		return 0
	}
	// hi < MaxSlippageBps, поэтому Div64 не паникует
	hi, lo := bits.Mul64(amount, uint64(MaxSlippageBps-bps))
	q, _ := bits.Div64(hi, lo, MaxSlippageBps)
	return q
}
