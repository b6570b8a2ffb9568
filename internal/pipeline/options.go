package pipeline

import (
	"errors"
	"fmt"

	"go-report-stream/internal/model"
	"go-report-stream/internal/source"
)

// Defaults applied by StartOptions.normalize.
const (
	DefaultChunkSize      = 1000
	DefaultMaxDemand      = 500
	DefaultPartitionCount = 1
)

// MemoryLimits bounds the pre-flight cardinality estimate.
type MemoryLimits struct {
	MaxGroups      int64
	MaxMemoryBytes int64
	Enforce        bool
}

// DefaultMemoryLimits returns the enforcement defaults: 100k groups, 100 MB.
func DefaultMemoryLimits() MemoryLimits {
	return MemoryLimits{
		MaxGroups:      100_000,
		MaxMemoryBytes: 100_000_000,
		Enforce:        true,
	}
}

// StartOptions parameterizes one pipeline run. Zero values fall back to
// defaults; only Source is required.
type StartOptions struct {
	// Source is the paged adapter the producer pulls from. Required.
	Source source.Source
	// SourceDescriptor names the source in registry metadata and telemetry.
	SourceDescriptor string

	ChunkSize      int
	MaxDemand      int
	PartitionCount int

	// Transformer is applied per record; nil means identity.
	Transformer model.Transformer

	// AggregationConfigs drives the grouped fold. When nil and Groups is
	// non-empty, the configurator builds it from Groups and Variables.
	AggregationConfigs []model.AggregationConfig
	Groups             []model.GroupDef
	Variables          []model.VariableDef
	Cumulative         *bool // default true

	Limits *MemoryLimits // default DefaultMemoryLimits
}

func (o *StartOptions) normalize() error {
	if o.Source == nil {
		return errors.New("source is required")
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxDemand == 0 {
		o.MaxDemand = DefaultMaxDemand
	}
	if o.PartitionCount == 0 {
		o.PartitionCount = DefaultPartitionCount
	}
	if o.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", o.ChunkSize)
	}
	if o.MaxDemand < 1 {
		return fmt.Errorf("max_demand must be positive, got %d", o.MaxDemand)
	}
	if o.PartitionCount < 1 {
		return fmt.Errorf("partition_count must be positive, got %d", o.PartitionCount)
	}
	if o.Transformer == nil {
		o.Transformer = model.IdentityTransformer
	}
	if o.Cumulative == nil {
		cumulative := true
		o.Cumulative = &cumulative
	}
	if o.Limits == nil {
		limits := DefaultMemoryLimits()
		o.Limits = &limits
	}
	return nil
}

// demandWindow is the producer's read-ahead budget in chunks.
func (o *StartOptions) demandWindow() int {
	window := o.MaxDemand / o.ChunkSize
	if window < 1 {
		window = 1
	}
	return window
}
