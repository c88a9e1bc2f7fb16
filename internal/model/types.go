package model

import (
	"errors"
	"time"
)

// ErrConfiguration is the root of every construction-time failure: unknown
// names, dimension mismatches and genotype-length mismatches all wrap it.
var ErrConfiguration = errors.New("configuration error")

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// LayoutSummary is the persisted shape of a genotype layout.
type LayoutSummary struct {
	Cells          int    `json:"cells"`
	AttentionSize  int    `json:"attention_size"`
	DownstreamSize int    `json:"downstream_size"`
	Distribution   string `json:"distribution"`
	Size           int    `json:"size"`
}

// ControllerSpec names everything needed to rebuild the controller a genotype
// was evolved for.
type ControllerSpec struct {
	Kind        string `json:"kind"`
	Config      string `json:"config"`
	Shape       string `json:"shape"`
	Sensors     int    `json:"sensors"`
	SignalWidth int    `json:"signal_width"`
	Projection  string `json:"projection,omitempty"`
	Normalizer  string `json:"normalizer,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	Hidden      []int  `json:"hidden,omitempty"`
	// Scale and Rows configure the row downsampler; both zero disables it.
	Scale int `json:"scale,omitempty"`
	Rows  int `json:"rows,omitempty"`
}

type GenotypeRecord struct {
	VersionedRecord
	ID        string         `json:"id"`
	Spec      ControllerSpec `json:"spec"`
	Layout    LayoutSummary  `json:"layout"`
	Genes     []float64      `json:"genes"`
	ParentIDs []string       `json:"parent_ids,omitempty"`
	Operator  string         `json:"operator,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type RolloutRecord struct {
	VersionedRecord
	ID         string      `json:"id"`
	GenotypeID string      `json:"genotype_id"`
	Sensors    string      `json:"sensors,omitempty"`
	Ticks      int         `json:"ticks"`
	Actuation  [][]float64 `json:"actuation"`
	Uniformity float64     `json:"uniformity"`
	CreatedAt  time.Time   `json:"created_at"`
}
