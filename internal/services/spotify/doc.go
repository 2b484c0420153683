// Package spotify is the remote player adapter: a thin HTTP client over the
// player endpoints plus a poller that turns observed state deltas into
// track-boundary callbacks for the skip/listen tracker.
//
// Token acquisition is out of scope; callers supply a TokenSource.
package spotify
