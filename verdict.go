package wykoj

import "fmt"

// Verdict is the short code persisted for submissions and test case results.
// It is part of the judge backend wire contract, do not rename values.
type Verdict string

const (
	VerdictNone    Verdict = ""
	VerdictPending Verdict = "pe"

	VerdictCompilationError    Verdict = "ce"
	VerdictAccepted            Verdict = "ac"
	VerdictPartialScore        Verdict = "ps"
	VerdictWrongAnswer         Verdict = "wa"
	VerdictRuntimeError        Verdict = "re"
	VerdictTimeLimitExceeded   Verdict = "tle"
	VerdictMemoryLimitExceeded Verdict = "mle"
	VerdictSystemError         Verdict = "se"
)

var verdictNames = map[Verdict]string{
	VerdictPending:             "Pending",
	VerdictCompilationError:    "Compilation Error",
	VerdictAccepted:            "Accepted",
	VerdictPartialScore:        "Partial Score",
	VerdictWrongAnswer:         "Wrong Answer",
	VerdictRuntimeError:        "Runtime Error",
	VerdictTimeLimitExceeded:   "Time Limit Exceeded",
	VerdictMemoryLimitExceeded: "Memory Limit Exceeded",
	VerdictSystemError:         "System Error",
}

func (v Verdict) Valid() bool {
	_, ok := verdictNames[v]
	return ok
}

// Terminal reports whether a submission with this verdict finished judging.
func (v Verdict) Terminal() bool {
	return v.Valid() && v != VerdictPending
}

func (v Verdict) Human() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "Unknown"
}

// CombineVerdicts folds one test case verdict into the running submission
// verdict. The running verdict starts out Accepted; the first failing case
// wins, except that Partial Score is still displaced by hard failures.
func CombineVerdicts(running, testCase Verdict) Verdict {
	switch {
	case running == VerdictAccepted && testCase != VerdictAccepted:
		return testCase
	case running == VerdictPartialScore &&
		testCase != VerdictAccepted && testCase != VerdictPartialScore:
		return testCase
	default:
		return running
	}
}

// Scan implements the sql.Scanner interface
func (v *Verdict) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*v = Verdict(s)
	case string:
		*v = Verdict(s)
	default:
		return fmt.Errorf("unsupported scan type for Verdict: %T", src)
	}
	return nil
}
