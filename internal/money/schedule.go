package money

// Plan is the result of splitting a financed balance into installments.
type Plan struct {
	TotalInterest      float64
	TotalFinanced      float64
	Principals         []float64
	Interests          []float64
	AverageInstallment float64
}

// Schedule distributes baseBalance plus interest into installmentCount
// shares. Principals sum to TotalFinanced and interests sum to
// TotalInterest exactly, to the cent; leftover cents from the floor
// division land on the first installments. AverageInstallment is a
// display figure only, never the authoritative per-installment value.
func Schedule(baseBalance, interestPercent float64, installmentCount int) Plan {
	if installmentCount < 1 {
		installmentCount = 1
	}
	if interestPercent < 0 {
		interestPercent = 0
	}

	var totalInterest float64
	if interestPercent > 0 {
		totalInterest = Round2(baseBalance * interestPercent / 100)
	}
	totalFinanced := Round2(baseBalance + totalInterest)

	principals := make([]float64, installmentCount)
	for i, c := range splitCents(Cents(totalFinanced), installmentCount) {
		principals[i] = float64(c) / 100
	}
	interests := make([]float64, installmentCount)
	for i, c := range splitCents(Cents(totalInterest), installmentCount) {
		interests[i] = float64(c) / 100
	}

	return Plan{
		TotalInterest:      totalInterest,
		TotalFinanced:      totalFinanced,
		Principals:         principals,
		Interests:          interests,
		AverageInstallment: Round2(totalFinanced / float64(installmentCount)),
	}
}
