package models

// Round представляет стадию турнира, соответствует ENUM в БД.
type Round string

const (
	RoundNone       Round = "none"
	RoundQualifiers Round = "qualifiers"
	RoundQuarter    Round = "quarter"
	RoundSemi       Round = "semi"
	RoundFinal      Round = "final"
	RoundChampion   Round = "champion"
)

// roundOrder задаёт порядок стадий: none < qualifiers < quarter < semi < final < champion.
var roundOrder = map[Round]int{
	RoundNone:       0,
	RoundQualifiers: 1,
	RoundQuarter:    2,
	RoundSemi:       3,
	RoundFinal:      4,
	RoundChampion:   5,
}

func (r Round) Valid() bool {
	_, ok := roundOrder[r]
	return ok
}

// Before возвращает true, если r идёт раньше other по сетке.
func (r Round) Before(other Round) bool {
	return roundOrder[r] < roundOrder[other]
}

// MaxRound возвращает более позднюю из двух стадий.
func MaxRound(a, b Round) Round {
	if roundOrder[a] >= roundOrder[b] {
		return a
	}
	return b
}
