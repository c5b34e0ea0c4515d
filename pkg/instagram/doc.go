// Package instagram talks to the private mobile API that serves story reels.
//
// A Client is built once per run from a Credentials bundle and carries the
// fixed header set, a retry policy and a shared rate limiter. Transient
// failures (connection errors and 500/502/503/504) are retried with
// exponential backoff; any other non-2xx status surfaces immediately as
// *errors.RemoteError.
//
//	client, err := instagram.NewClient(creds,
//	    instagram.WithLimiter(ratelimit.NewPerMinute(60, 10)),
//	    instagram.WithLogger(log),
//	)
//	tray, raw, err := client.FetchReelsTray(ctx)
//
// Response models keep every optional field as a pointer or slice so that a
// missing key is observable instead of silently zero.
package instagram
