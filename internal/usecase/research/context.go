package research

import (
	"sync"

	"github.com/prevalidate/researchd/internal/domain"
)

// StageName is the pipeline state machine position.
type StageName string

// Pipeline stages, in execution order. Failed is terminal.
const (
	StageInitializing       StageName = "initializing"
	StageKeywordExtraction  StageName = "keyword_extraction"
	StageCommunityDiscovery StageName = "community_discovery"
	StageDataFetch          StageName = "data_fetch"
	StageFiltering          StageName = "filtering"
	StageComplete           StageName = "complete"
	StageFailed             StageName = "failed"
)

// RunConfig is the per-run policy record.
type RunConfig struct {
	MaxCommunities    int
	PerCommunityLimit int
	TimeRangeDays     int
	// Communities overrides discovery entirely when non-empty.
	Communities []string
	Retry       domain.RetryPolicy
}

// Context is the mutable run-scoped state threaded through the pipeline. It
// is exclusively owned by one in-flight run; mutation goes through the setter
// methods only, so every state transition is auditable. The mutex exists for
// the external watchdog, which reads Snapshot from another goroutine.
type Context struct {
	jobID      string
	userID     string
	mode       domain.Mode
	hypothesis domain.Hypothesis
	cfg        RunConfig

	mu            sync.Mutex
	stage         StageName
	keywords      domain.KeywordSet
	communities   []domain.Community
	postsFound    int
	postsAnalyzed int
	expansions    []domain.ExpansionAttempt
	errSource     domain.ErrorSource
	errMsg        string
}

// NewContext creates the run context. Mode is derived once, here, from the
// presence of app metadata and never reassigned.
func NewContext(jobID, userID string, hyp domain.Hypothesis, app *domain.AppMetadata, cfg RunConfig) *Context {
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.MinYield == 0 {
		cfg.Retry = domain.DefaultRetryPolicy()
	}
	return &Context{
		jobID:      jobID,
		userID:     userID,
		mode:       domain.DetectMode(app),
		hypothesis: hyp,
		cfg:        cfg,
		stage:      StageInitializing,
	}
}

// JobID returns the job identifier.
func (c *Context) JobID() string { return c.jobID }

// UserID returns the owning user.
func (c *Context) UserID() string { return c.userID }

// Mode returns the run mode fixed at creation.
func (c *Context) Mode() domain.Mode { return c.mode }

// Hypothesis returns the hypothesis under validation.
func (c *Context) Hypothesis() domain.Hypothesis { return c.hypothesis }

// Config returns the per-run policy record.
func (c *Context) Config() RunConfig { return c.cfg }

// Stage returns the current pipeline stage.
func (c *Context) Stage() StageName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// SetStage advances the state machine. Transitions out of the failed state
// are refused: failed is terminal.
func (c *Context) SetStage(s StageName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == StageFailed {
		return
	}
	c.stage = s
}

// SetKeywords records the extracted keyword set.
func (c *Context) SetKeywords(k domain.KeywordSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keywords = k
}

// Keywords returns the extracted keyword set.
func (c *Context) Keywords() domain.KeywordSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keywords
}

// SetCommunities records the communities queued for fetching.
func (c *Context) SetCommunities(comms []domain.Community) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.communities = comms
}

// Communities returns the queued communities.
func (c *Context) Communities() []domain.Community {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.communities
}

// AddCommunity appends one community found after initial discovery.
func (c *Context) AddCommunity(comm domain.Community) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.communities = append(c.communities, comm)
}

// AddPostsFound increments the raw-item counter.
func (c *Context) AddPostsFound(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postsFound += n
}

// SetPostsAnalyzed records how many items entered filtering.
func (c *Context) SetPostsAnalyzed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postsAnalyzed = n
}

// RecordExpansion appends one adaptive-expansion telemetry record.
func (c *Context) RecordExpansion(a domain.ExpansionAttempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expansions = append(c.expansions, a)
}

// Expansions returns the expansion telemetry recorded so far.
func (c *Context) Expansions() []domain.ExpansionAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ExpansionAttempt, len(c.expansions))
	copy(out, c.expansions)
	return out
}

// Fail marks the run failed exactly once, recording the error source tag and
// message. Later calls are no-ops so the first failure wins.
func (c *Context) Fail(source domain.ErrorSource, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == StageFailed {
		return
	}
	c.stage = StageFailed
	c.errSource = source
	c.errMsg = msg
}

// Failed reports whether the run has reached the terminal failed state.
func (c *Context) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage == StageFailed
}

// Complete marks the run complete. A failed run stays failed.
func (c *Context) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == StageFailed {
		return
	}
	c.stage = StageComplete
}

// Error returns the terminal error source and message, empty until Fail.
func (c *Context) Error() (domain.ErrorSource, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errSource, c.errMsg
}

// Snapshot is the read-only progress view exposed to the external watchdog.
type Snapshot struct {
	JobID         string                    `json:"job_id"`
	Mode          string                    `json:"mode"`
	Stage         StageName                 `json:"stage"`
	PostsFound    int                       `json:"posts_found"`
	PostsAnalyzed int                       `json:"posts_analyzed"`
	Expansions    []domain.ExpansionAttempt `json:"expansion_attempts,omitempty"`
	ErrorSource   domain.ErrorSource        `json:"error_source,omitempty"`
	ErrorMessage  string                    `json:"error,omitempty"`
}

// Snapshot returns a consistent copy of the run's progress counters.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := make([]domain.ExpansionAttempt, len(c.expansions))
	copy(exp, c.expansions)
	return Snapshot{
		JobID:         c.jobID,
		Mode:          c.mode.String(),
		Stage:         c.stage,
		PostsFound:    c.postsFound,
		PostsAnalyzed: c.postsAnalyzed,
		Expansions:    exp,
		ErrorSource:   c.errSource,
		ErrorMessage:  c.errMsg,
	}
}
