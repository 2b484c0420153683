package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType classifies a graph node.
type NodeType string

const (
	NodeSong         NodeType = "SONG"
	NodeArtist       NodeType = "ARTIST"
	NodeVibe         NodeType = "VIBE"
	NodeGenre        NodeType = "GENRE"
	NodeAudioFeature NodeType = "AUDIO_FEATURE"
)

// Valid reports whether the node type is one of the known values.
func (t NodeType) Valid() bool {
	switch t {
	case NodeSong, NodeArtist, NodeVibe, NodeGenre, NodeAudioFeature:
		return true
	}
	return false
}

// EdgeType classifies a directed relationship between two nodes.
type EdgeType string

const (
	EdgeSimilar    EdgeType = "SIMILAR"
	EdgeNext       EdgeType = "NEXT"
	EdgeRelated    EdgeType = "RELATED"
	EdgeHasFeature EdgeType = "HAS_FEATURE"
	EdgeHasGenre   EdgeType = "HAS_GENRE"
)

// Valid reports whether the edge type is one of the known values.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeSimilar, EdgeNext, EdgeRelated, EdgeHasFeature, EdgeHasGenre:
		return true
	}
	return false
}

// Node is one entity of the taste graph.
type Node struct {
	ID           int64
	Type         NodeType
	ExternalID   string // provider track/artist id, empty when unknown
	Name         string
	Attrs        NodeAttrs
	PlayCount    int64
	LastPlayedAt time.Time // zero when never played
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Edge is a weighted directed relationship. Unique on (SourceID, TargetID, Type).
type Edge struct {
	SourceID  int64
	TargetID  int64
	Type      EdgeType
	Weight    float64
	CreatedAt time.Time
}

// NodeAttrs is the type-tagged payload stored in a node's data column.
// The concrete type is determined by the node type.
type NodeAttrs interface {
	nodeAttrs()
}

// SongAttrs carries song metadata.
type SongAttrs struct {
	Artist     string `json:"artist,omitempty"`
	URI        string `json:"uri,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

func (SongAttrs) nodeAttrs() {}

// ArtistAttrs carries artist metadata.
type ArtistAttrs struct {
	Genres []string `json:"genres,omitempty"`
}

func (ArtistAttrs) nodeAttrs() {}

// VibeAttrs carries a vibe's descriptive context.
type VibeAttrs struct {
	Description string `json:"description,omitempty"`
}

func (VibeAttrs) nodeAttrs() {}

// AudioFeatureAttrs carries numeric feature values such as energy or tempo.
type AudioFeatureAttrs struct {
	Values map[string]float64 `json:"values,omitempty"`
}

func (AudioFeatureAttrs) nodeAttrs() {}

// SongStatus records how a session song ended.
type SongStatus string

const (
	SongPlayed  SongStatus = "played"
	SongSkipped SongStatus = "skipped"
)

// SessionSong is one entry of a per-vibe listening session handed to
// CommitSession.
type SessionSong struct {
	URI      string
	Title    string
	Artist   string
	Status   SongStatus
	ListenMs int64
}

// GenreWeight is one row of a genre aggregation.
type GenreWeight struct {
	Genre  string
	Weight float64
}

func marshalAttrs(typ NodeType, attrs NodeAttrs) (string, error) {
	if attrs == nil {
		return "", nil
	}
	switch typ {
	case NodeSong:
		if _, ok := attrs.(SongAttrs); !ok {
			return "", fmt.Errorf("node type %s cannot hold %T attributes", typ, attrs)
		}
	case NodeArtist:
		if _, ok := attrs.(ArtistAttrs); !ok {
			return "", fmt.Errorf("node type %s cannot hold %T attributes", typ, attrs)
		}
	case NodeVibe:
		if _, ok := attrs.(VibeAttrs); !ok {
			return "", fmt.Errorf("node type %s cannot hold %T attributes", typ, attrs)
		}
	case NodeAudioFeature:
		if _, ok := attrs.(AudioFeatureAttrs); !ok {
			return "", fmt.Errorf("node type %s cannot hold %T attributes", typ, attrs)
		}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal node attributes: %w", err)
	}
	return string(data), nil
}

func unmarshalAttrs(typ NodeType, data string) (NodeAttrs, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	var (
		attrs NodeAttrs
		err   error
	)
	switch typ {
	case NodeSong:
		var v SongAttrs
		err = json.Unmarshal([]byte(data), &v)
		attrs = v
	case NodeArtist:
		var v ArtistAttrs
		err = json.Unmarshal([]byte(data), &v)
		attrs = v
	case NodeVibe:
		var v VibeAttrs
		err = json.Unmarshal([]byte(data), &v)
		attrs = v
	case NodeAudioFeature:
		var v AudioFeatureAttrs
		err = json.Unmarshal([]byte(data), &v)
		attrs = v
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", typ, err)
	}
	return attrs, nil
}
