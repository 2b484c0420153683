// Package playback owns the canonical local view of the remote player:
// the now-playing track, the upcoming queue, and the play state.
//
// Two writers feed it. Caller-initiated actions land immediately as
// optimistic writes; a periodic poll overwrites state from the remote
// adapter as synchronized writes. A recency watermark suppresses
// synchronized writes that began before the most recent optimistic action,
// so a stale poll can never clobber an action that has not yet propagated
// remotely.
package playback
