package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

const rule = "========================================"

// Money formats an amount as $1,234.56 (or -$1,234.56).
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return humanize.FormatFloat("#,###.##", v)
	}
	f, _ := cents(v).Float64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

// FormatText creates the plain-text risk assessment report.
func FormatText(s Summary) string {
	m := s.Metrics
	var b strings.Builder

	b.WriteString("\n" + rule + "\n")
	b.WriteString("PORTFOLIO RISK ASSESSMENT REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-21s%s\n", "Initial Investment:", Money(m.InitialCapital))
	fmt.Fprintf(&b, "%-21s%s\n", "Median Prediction:", Money(m.MedianFinalValue))
	fmt.Fprintf(&b, "%-21s%s\n", humanize.Ftoa(m.Percentile)+"% Risk Threshold:", Money(m.VaRThreshold))
	fmt.Fprintf(&b, "%-21s%s\n", "Potential Max Loss:", Money(m.MaxLoss))
	b.WriteString(rule + "\n")

	if len(s.Assets) > 0 {
		parts := make([]string, len(s.Assets))
		for i, a := range s.Assets {
			w := 0.0
			if i < len(s.Weights) {
				w = s.Weights[i]
			}
			if w >= 0 {
				parts[i] = fmt.Sprintf("%s %.1f%%", a, w*100)
			} else {
				parts[i] = fmt.Sprintf("%s %.1f%% SHORT", a, -w*100)
			}
		}
		fmt.Fprintf(&b, "Allocation:          %s\n", strings.Join(parts, ", "))
	}
	if !s.Start.IsZero() {
		fmt.Fprintf(&b, "History:             %s to %s (%s returns)\n",
			s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"), humanize.Comma(int64(s.Observations)))
	}
	fmt.Fprintf(&b, "Scenarios:           %s paths x %s days (seed %d)\n",
		humanize.Comma(int64(s.NumSims)), humanize.Comma(int64(s.FutureDays)), s.Seed)
	fmt.Fprintf(&b, "Annualised:          Return %.2f%% | Vol %.2f%% | Sharpe %.2f\n",
		s.Annualised.Return, s.Annualised.Volatility, s.Annualised.SharpeRatio)
	fmt.Fprintf(&b, "Expected Shortfall:  %s\n", Money(s.ExpectedShortfall))
	fmt.Fprintf(&b, "Median Path MaxDD:   %.2f%%\n", s.MedianDrawdown*100)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run:                 %s\n", s.RunID)
	}
	b.WriteString(rule + "\n")
	return b.String()
}
