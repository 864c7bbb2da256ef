package solana_chainlink

import (
	"strconv"
	"strings"
)

const (
	logPrefix   = "Program log: "
	pricePhrase = " price is "
)

// Invocation is one "Program <id> invoke [depth]" frame in a transaction log.
type Invocation struct {
	Program string
	Depth   int
	Success bool
	// Failure is the text after "failed: " when the frame failed.
	Failure string
}

// ProgramLogs is the structured view of a transaction's log lines.
type ProgramLogs struct {
	// Messages are the "Program log:" payloads in emitted order.
	Messages    []string
	Invocations []Invocation

	FailureReason string

	// PriceDescription and Price come from the "<description> price is <value>" message.
	PriceDescription string
	Price            string
}

// ParseProgramLogs walks the raw log lines. Unrecognised lines, including
// "Program data:" events, are ignored.
func ParseProgramLogs(logs []string) ProgramLogs {
	var out ProgramLogs
	var stack []int

	for _, line := range logs {
		switch {
		case strings.HasPrefix(line, logPrefix):
			msg := strings.TrimPrefix(line, logPrefix)
			out.Messages = append(out.Messages, msg)
			if i := strings.LastIndex(msg, pricePhrase); i > 0 && out.Price == "" {
				out.PriceDescription = msg[:i]
				out.Price = strings.TrimSpace(msg[i+len(pricePhrase):])
			}
			if strings.HasPrefix(msg, "AnchorError") && out.FailureReason == "" {
				out.FailureReason = msg
			}

		case strings.HasPrefix(line, "Program "):
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			program := fields[1]
			switch {
			case fields[2] == "invoke" && len(fields) >= 4:
				depth, _ := strconv.Atoi(strings.Trim(fields[3], "[]"))
				out.Invocations = append(out.Invocations, Invocation{Program: program, Depth: depth})
				stack = append(stack, len(out.Invocations)-1)
			case fields[2] == "success":
				if n := len(stack); n > 0 {
					out.Invocations[stack[n-1]].Success = true
					stack = stack[:n-1]
				}
			case fields[2] == "failed:":
				reason := strings.TrimSpace(strings.SplitN(line, "failed:", 2)[1])
				if n := len(stack); n > 0 {
					out.Invocations[stack[n-1]].Failure = reason
					stack = stack[:n-1]
				}
				if out.FailureReason == "" {
					out.FailureReason = reason
				}
			}
		}
	}
	return out
}

// FailedInvocations returns the frames that ended with "failed:", outermost first.
func (p ProgramLogs) FailedInvocations() []Invocation {
	var failed []Invocation
	for _, inv := range p.Invocations {
		if inv.Failure != "" {
			failed = append(failed, inv)
		}
	}
	return failed
}
