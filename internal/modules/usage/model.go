package usage

import "errors"

// ErrInsufficientTokens is returned when an identity has no completions left this month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultMonthlyTokens is the number of general-question completions granted per month.
const DefaultMonthlyTokens = 100

const monthLayout = "2006-01"
