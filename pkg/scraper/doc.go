// Package scraper walks story API responses and downloads their media.
//
// A Session owns a bounded download pool. Its Process methods resolve
// every story item and livestream manifest entry into one of three
// outcomes: Resolved entries are queued for download, while malformed or
// media-less entries are logged and counted, never aborting the batch.
//
//	s := scraper.New(client, scraper.Options{Root: ".", Concurrency: 4})
//	summary, err := s.Run(ctx)
//
// Run fetches the tray, processes it and its livestreams, then fetches
// each listed user's reel concurrently. Cancelling ctx stops every
// in-flight request and download; partial files are removed.
package scraper
