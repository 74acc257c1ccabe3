package fanout

import "github.com/studyhall-hq/go-push-service/pkg/push"

var prunableCodes = map[string]struct{}{
	push.CodeTokenNotRegistered: {},
	push.CodeInvalidToken:       {},
}

// Prunable reports whether an error code marks a token as permanently
// dead. Quota and availability errors are transient: the token stays.
func Prunable(code string) bool {
	_, ok := prunableCodes[code]
	return ok
}

// PrunableTokens maps a dispatch result back onto the batch it came from
// and returns the tokens whose failures are permanent. It relies on the
// positional alignment between tokens and result.Results; a short result
// (batch-level failure) yields nothing.
func PrunableTokens(tokens []string, result push.DispatchResult) []string {
	if len(result.Results) != len(tokens) {
		return nil
	}

	var dead []string
	for i, res := range result.Results {
		if res.Delivered {
			continue
		}
		if Prunable(res.ErrorCode) {
			dead = append(dead, tokens[i])
		}
	}
	return dead
}
