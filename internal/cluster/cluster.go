package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/collector"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

// UnclusteredRoleID names the residual role holding contexts that matched no
// cluster.
const UnclusteredRoleID = "unclustered"

const centroidTermCount = 6

// SemanticRole is a group of call-site contexts sharing a coherent purpose.
type SemanticRole struct {
	ID                   string                      `json:"id"`
	Members              []collector.CallSiteContext `json:"members"`
	CentroidDescription  string                      `json:"centroid_description"`
	UsagePercentage      float64                     `json:"usage_percentage"`
	IsOriginalIntentRole bool                        `json:"is_original_intent_role"`
	Unclustered          bool                        `json:"unclustered,omitempty"`

	centroid []float64
}

// Result carries the roles plus the aggregate signals the rule engine reads.
type Result struct {
	Roles []SemanticRole `json:"roles"`

	// PairwiseSimilarity[i][j] compares Roles[i] and Roles[j] centroids.
	// The residual unclustered role is excluded from the matrix.
	PairwiseSimilarity [][]float64 `json:"pairwise_similarity"`

	// MinPairwiseSimilarity is 1.0 when fewer than two clustered roles exist.
	MinPairwiseSimilarity float64 `json:"min_pairwise_similarity"`

	// IntentAlignmentShare is the fraction of contexts whose window is
	// similar to the anchor's intent description.
	IntentAlignmentShare float64 `json:"intent_alignment_share"`

	UnclusteredShare float64 `json:"unclustered_share"`
	WorkaroundShare  float64 `json:"workaround_share"`
}

// workaroundMarkers flag call sites that bend the symbol to a need it does
// not serve. Matched case-insensitively against the context window.
var workaroundMarkers = []string{
	"workaround", "work around", "hack", "kludge", "shim",
	"monkeypatch", "monkey-patch", "fixme", "xxx:",
	"wrapper around", "because of limitation",
}

// Clusterer groups contexts into roles with deterministic leader clustering.
type Clusterer struct {
	embedder   Embedder
	thresholds config.ThresholdsConfig
	logger     *logging.Logger
}

func New(embedder Embedder, thresholds config.ThresholdsConfig, logger *logging.Logger) *Clusterer {
	return &Clusterer{embedder: embedder, thresholds: thresholds, logger: logger}
}

type protoCluster struct {
	seed    []float64
	members []int
}

// Cluster groups the contexts into semantic roles against the anchor.
//
// The algorithm is leader clustering over a canonical ordering: contexts are
// sorted by (location, revision), each joins the first existing cluster whose
// seed is at least DistinctRoleSimilarity away, otherwise founds a new one.
// A merge pass then folds variant clusters (centroid similarity at least
// VariantRoleSimilarity) together. No random state anywhere: identical input
// always yields identical roles.
func (c *Clusterer) Cluster(ctx context.Context, anchor anchorpoint.IntentAnchor, contexts []collector.CallSiteContext) (*Result, error) {
	if len(contexts) < c.thresholds.MinCallSites {
		return nil, errors.New(
			errors.InsufficientSamples,
			fmt.Sprintf("%d call sites, need at least %d to cluster", len(contexts), c.thresholds.MinCallSites),
			nil,
		).WithDetails(map[string]interface{}{"symbol": anchor.Symbol.QualifiedName})
	}

	ordered := make([]collector.CallSiteContext, len(contexts))
	copy(ordered, contexts)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Location() != ordered[j].Location() {
			return ordered[i].Location() < ordered[j].Location()
		}
		return ordered[i].Revision < ordered[j].Revision
	})

	vectors := make([][]float64, len(ordered))
	for i, cc := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := c.embedder.Embed(ctx, cc.Window)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	clusters := leaderCluster(vectors, c.thresholds.DistinctRoleSimilarity)
	clusters = mergeVariants(clusters, vectors, c.thresholds.VariantRoleSimilarity)

	var residual []int
	clusters, residual = splitResidual(clusters)

	total := len(ordered)
	if dominant := dominantCluster(clusters, total, c.thresholds.SingleRoleCollapseShare); dominant >= 0 {
		clusters = collapseInto(clusters, residual, dominant)
		residual = nil
	}

	intentVec, err := c.embedder.Embed(ctx, anchor.IntentDescription)
	if err != nil {
		return nil, err
	}

	result := c.buildResult(anchor, ordered, vectors, clusters, residual, intentVec)
	c.logger.Debug("Clustered call sites", map[string]interface{}{
		"symbol":      anchor.Symbol.QualifiedName,
		"contexts":    total,
		"roles":       len(result.Roles),
		"unclustered": result.UnclusteredShare,
	})
	return result, nil
}

func leaderCluster(vectors [][]float64, threshold float64) []*protoCluster {
	var clusters []*protoCluster
	for i, vec := range vectors {
		joined := false
		for _, cl := range clusters {
			if CosineSimilarity(vec, cl.seed) >= threshold {
				cl.members = append(cl.members, i)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, &protoCluster{seed: vec, members: []int{i}})
		}
	}
	return clusters
}

// mergeVariants folds clusters whose centroids are variants of the same role.
// Leader clustering is order-sensitive enough to split one role across two
// seeds; the merge pass undoes that. Pairs are scanned in index order and
// rescanned after every merge, so the result does not depend on map ordering.
func mergeVariants(clusters []*protoCluster, vectors [][]float64, threshold float64) []*protoCluster {
	for {
		merged := false
	scan:
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				ci := centroidOf(clusters[i].members, vectors)
				cj := centroidOf(clusters[j].members, vectors)
				if CosineSimilarity(ci, cj) >= threshold {
					clusters[i].members = append(clusters[i].members, clusters[j].members...)
					sort.Ints(clusters[i].members)
					clusters = append(clusters[:j], clusters[j+1:]...)
					merged = true
					break scan
				}
			}
		}
		if !merged {
			return clusters
		}
	}
}

// splitResidual pulls singleton clusters out as unclustered contexts. A
// context that founded a cluster nobody joined matched nothing within the
// similarity threshold.
func splitResidual(clusters []*protoCluster) ([]*protoCluster, []int) {
	if len(clusters) <= 1 {
		return clusters, nil
	}
	var kept []*protoCluster
	var residual []int
	for _, cl := range clusters {
		if len(cl.members) == 1 {
			residual = append(residual, cl.members[0])
			continue
		}
		kept = append(kept, cl)
	}
	if len(kept) == 0 {
		// Everything was a singleton; keep the clusters rather than
		// declaring the whole symbol residual.
		return clusters, nil
	}
	sort.Ints(residual)
	return kept, residual
}

func dominantCluster(clusters []*protoCluster, total int, collapseShare float64) int {
	for i, cl := range clusters {
		if float64(len(cl.members))/float64(total) > collapseShare {
			return i
		}
	}
	return -1
}

func collapseInto(clusters []*protoCluster, residual []int, dominant int) []*protoCluster {
	target := clusters[dominant]
	for i, cl := range clusters {
		if i == dominant {
			continue
		}
		target.members = append(target.members, cl.members...)
	}
	target.members = append(target.members, residual...)
	sort.Ints(target.members)
	return []*protoCluster{target}
}

func centroidOf(members []int, vectors [][]float64) []float64 {
	if len(members) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[members[0]]))
	for _, idx := range members {
		for d, v := range vectors[idx] {
			out[d] += v
		}
	}
	n := float64(len(members))
	for d := range out {
		out[d] /= n
	}
	return out
}

func (c *Clusterer) buildResult(anchor anchorpoint.IntentAnchor, ordered []collector.CallSiteContext, vectors [][]float64, clusters []*protoCluster, residual []int, intentVec []float64) *Result {
	total := len(ordered)

	// Largest role first; ties break on the earliest member so ordering is
	// a pure function of the input.
	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].members) != len(clusters[j].members) {
			return len(clusters[i].members) > len(clusters[j].members)
		}
		return clusters[i].members[0] < clusters[j].members[0]
	})

	roles := make([]SemanticRole, 0, len(clusters)+1)
	for i, cl := range clusters {
		members := make([]collector.CallSiteContext, 0, len(cl.members))
		var windows []string
		for _, idx := range cl.members {
			members = append(members, ordered[idx])
			windows = append(windows, ordered[idx].Window)
		}
		centroid := centroidOf(cl.members, vectors)
		roles = append(roles, SemanticRole{
			ID:                   fmt.Sprintf("role-%02d", i+1),
			Members:              members,
			CentroidDescription:  describeWindows(windows),
			UsagePercentage:      float64(len(cl.members)) / float64(total),
			IsOriginalIntentRole: CosineSimilarity(centroid, intentVec) >= c.thresholds.DistinctRoleSimilarity,
			centroid:             centroid,
		})
	}

	clusteredCount := len(roles)
	if len(residual) > 0 {
		members := make([]collector.CallSiteContext, 0, len(residual))
		for _, idx := range residual {
			members = append(members, ordered[idx])
		}
		roles = append(roles, SemanticRole{
			ID:                  UnclusteredRoleID,
			Members:             members,
			CentroidDescription: "contexts matching no role",
			UsagePercentage:     float64(len(residual)) / float64(total),
			Unclustered:         true,
		})
	}

	matrix := make([][]float64, clusteredCount)
	minSim := 1.0
	for i := 0; i < clusteredCount; i++ {
		matrix[i] = make([]float64, clusteredCount)
		matrix[i][i] = 1.0
		for j := 0; j < i; j++ {
			sim := CosineSimilarity(roles[i].centroid, roles[j].centroid)
			matrix[i][j] = sim
			matrix[j][i] = sim
			if sim < minSim {
				minSim = sim
			}
		}
	}

	aligned := 0
	workarounds := 0
	for i, cc := range ordered {
		if CosineSimilarity(vectors[i], intentVec) > c.thresholds.DistinctRoleSimilarity {
			aligned++
		}
		if IsWorkaroundContext(cc) {
			workarounds++
		}
	}

	return &Result{
		Roles:                 roles,
		PairwiseSimilarity:    matrix,
		MinPairwiseSimilarity: minSim,
		IntentAlignmentShare:  float64(aligned) / float64(total),
		UnclusteredShare:      float64(len(residual)) / float64(total),
		WorkaroundShare:       float64(workarounds) / float64(total),
	}
}

// IsWorkaroundContext reports whether a call site shows the symbol being
// bent around a need it does not serve.
func IsWorkaroundContext(cc collector.CallSiteContext) bool {
	window := strings.ToLower(cc.Window)
	for _, marker := range workaroundMarkers {
		if strings.Contains(window, marker) {
			return true
		}
	}
	return false
}

// describeWindows summarizes a cluster as its most frequent window terms,
// most frequent first with alphabetical tiebreak.
func describeWindows(windows []string) string {
	freq := map[string]int{}
	for _, w := range windows {
		for _, tok := range tokenize(w) {
			if stopwords[tok] {
				continue
			}
			freq[tok]++
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > centroidTermCount {
		terms = terms[:centroidTermCount]
	}
	if len(terms) == 0 {
		return "(no descriptive terms)"
	}
	return strings.Join(terms, ", ")
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "self": true, "return": true, "none": true,
	"def": true, "func": true, "var": true, "nil": true, "true": true,
	"false": true, "import": true, "if": true, "else": true, "not": true,
}
