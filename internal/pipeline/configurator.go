package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
)

// Cardinality heuristics for the pre-flight memory estimate. Estimated
// groups per level depend only on how many fields the level groups by, not
// on the data.
const (
	bytesPerGroup     = 600 // one accumulator's rough footprint
	warnMemoryBytes   = 50_000_000
	groupsOneField    = 100
	groupsTwoFields   = 1_000
	groupsThreeFields = 5_000
	groupsManyFields  = 10_000
)

// fieldExpr matches a plain, possibly dotted field reference like
// "region" or "record.city".
var fieldExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// BuildAggregations derives the per-level aggregation configs from report
// group and variable definitions. In cumulative mode each level's group-by
// list is the lower levels' fields plus its own, preserving order; otherwise
// every level stands alone. Never fails: unparseable group expressions fall
// back to the group's own name with a warning.
func BuildAggregations(groups []model.GroupDef, variables []model.VariableDef, cumulative bool, log zerolog.Logger) []model.AggregationConfig {
	ordered := make([]model.GroupDef, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	configs := make([]model.AggregationConfig, 0, len(ordered))
	var accumulated []string
	for _, g := range ordered {
		field := extractField(g, log)
		var groupBy []string
		if cumulative {
			accumulated = append(accumulated, field)
			groupBy = append(groupBy, accumulated...)
		} else {
			groupBy = []string{field}
		}
		configs = append(configs, model.AggregationConfig{
			Level:        g.Level,
			GroupBy:      groupBy,
			Aggregations: aggregationsForLevel(variables, g.Level),
		})
	}
	return configs
}

// extractField pulls the grouped field out of a group's expression, falling
// back to the group name when the expression is not a plain field reference.
func extractField(g model.GroupDef, log zerolog.Logger) string {
	expr := strings.TrimSpace(g.Expr)
	if expr != "" && fieldExpr.MatchString(expr) {
		parts := strings.Split(expr, ".")
		return parts[len(parts)-1]
	}
	log.Warn().Str("group", g.Name).Str("expr", g.Expr).
		Msg("could not extract field from group expression, using group name")
	return g.Name
}

// aggregationsForLevel maps group-scoped variables resetting at level to
// aggregation functions. Levels without such variables default to sum+count.
func aggregationsForLevel(variables []model.VariableDef, level int) []model.AggregationFunc {
	var fns []model.AggregationFunc
	seen := make(map[model.AggregationFunc]bool)
	add := func(fn model.AggregationFunc) {
		if !seen[fn] {
			seen[fn] = true
			fns = append(fns, fn)
		}
	}
	for _, v := range variables {
		if v.ResetScope != "group" || v.ResetLevel != level {
			continue
		}
		switch strings.ToLower(v.Kind) {
		case "sum":
			add(model.AggSum)
		case "average", "avg":
			add(model.AggAvg)
		case "count":
			add(model.AggCount)
		case "min":
			add(model.AggMin)
		case "max":
			add(model.AggMax)
		case "first":
			add(model.AggFirst)
		case "last":
			add(model.AggLast)
		}
	}
	if len(fns) == 0 {
		return []model.AggregationFunc{model.AggSum, model.AggCount}
	}
	return fns
}

// estimatedGroups is the heuristic group-count estimate for one config.
func estimatedGroups(fieldCount int) int64 {
	switch {
	case fieldCount <= 1:
		return groupsOneField
	case fieldCount == 2:
		return groupsTwoFields
	case fieldCount == 3:
		return groupsThreeFields
	default:
		return groupsManyFields
	}
}

// ValidateMemory estimates the total group cardinality and accumulator
// memory of a config list and rejects it before the pipeline starts when an
// enforced ceiling is exceeded. Estimates above the warning threshold but
// below the ceilings only log.
func ValidateMemory(configs []model.AggregationConfig, limits MemoryLimits, log zerolog.Logger) error {
	var totalGroups int64
	for _, c := range configs {
		totalGroups += estimatedGroups(len(c.GroupBy))
	}
	totalMemory := totalGroups * bytesPerGroup

	const hint = "disable cumulative grouping, reduce grouping levels, or raise the limit"
	if limits.Enforce {
		if totalGroups > limits.MaxGroups {
			return &model.MemoryLimitError{
				Reason:          "estimated_groups",
				EstimatedGroups: totalGroups,
				EstimatedMemory: totalMemory,
				Limit:           limits.MaxGroups,
				Hint:            hint,
			}
		}
		if totalMemory > limits.MaxMemoryBytes {
			return &model.MemoryLimitError{
				Reason:          "estimated_memory",
				EstimatedGroups: totalGroups,
				EstimatedMemory: totalMemory,
				Limit:           limits.MaxMemoryBytes,
				Hint:            hint,
			}
		}
	} else if totalGroups > limits.MaxGroups || totalMemory > limits.MaxMemoryBytes {
		log.Warn().Int64("estimated_groups", totalGroups).
			Int64("estimated_memory", totalMemory).
			Msg("aggregation estimate exceeds limits, enforcement disabled")
	}

	if totalMemory > warnMemoryBytes {
		log.Warn().Int64("estimated_groups", totalGroups).
			Int64("estimated_memory", totalMemory).
			Msg("aggregation estimate above warning threshold")
	}
	return nil
}
