package autodj

import "moodify/internal/services"

var (
	errNoPlayableRescue = services.Wrap(services.ErrNotFound, "autodj", "rescue", "no rescue suggestion resolved to a playable track", nil)
)
