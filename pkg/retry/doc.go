// Package retry runs an operation under a per-request retry policy with
// exponential backoff.
//
// A Policy decides how many attempts are made, how long to pause between
// them and which errors are worth another try. The default policy matches
// the transport's contract: three attempts, 200ms doubling backoff, retries
// only on connection failures and 500/502/503/504.
//
//	policy := retry.DefaultPolicy()
//	body, err := retry.DoWithResult(ctx, policy, func(ctx context.Context) ([]byte, error) {
//		return fetch(ctx)
//	})
//
// When every attempt fails the returned error is an *ExhaustedError that
// wraps the last failure, so errors.As still finds the underlying
// *errors.RemoteError.
package retry
