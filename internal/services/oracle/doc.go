// Package oracle wraps the recommendation oracle's chat-completion API.
// The oracle is a black box: this client sends listening context and gets
// back structured track suggestions, vibe names, and moods as JSON.
package oracle
