package validator

import (
	"encoding/json"
	"time"
)

type Stage int

const (
	StageSearch Stage = iota
	StageBookInfo
	StageChapterList
	StageContent
	stageCount
)

var stageNames = [...]string{"search", "bookInfo", "chapterList", "content"}

func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return "unknown"
	}

	return stageNames[s]
}

// Stages lists every stage in run order.
func Stages() []Stage {
	return []Stage{StageSearch, StageBookInfo, StageChapterList, StageContent}
}

type Status int

const (
	NotAttempted Status = iota
	Passed
	Failed
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "notAttempted"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type StageResult struct {
	Stage  Stage
	Status Status
	// Err is set when a fetch or extraction error ended the run here.
	Err error
	// Detail summarises what the stage found, e.g. "3 results".
	Detail string
}

func (r StageResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Stage  string `json:"stage"`
		Status Status `json:"status"`
		Error  string `json:"error,omitempty"`
		Detail string `json:"detail,omitempty"`
	}{Stage: r.Stage.String(), Status: r.Status, Detail: r.Detail}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}

	return json.Marshal(out)
}

// Verdict is the per-stage outcome of one validation run.
type Verdict struct {
	SourceID   int64                   `json:"sourceId,omitempty"`
	SourceName string                  `json:"source"`
	Stages     [stageCount]StageResult `json:"stages"`
	Duration   time.Duration           `json:"duration"`
}

func newVerdict(id int64, name string) *Verdict {
	v := &Verdict{SourceID: id, SourceName: name}
	for _, s := range Stages() {
		v.Stages[s].Stage = s
	}

	return v
}

func (v *Verdict) Stage(s Stage) StageResult {
	return v.Stages[s]
}

// OK reports whether every attempted stage passed. A run where nothing was
// attempted is not OK.
func (v *Verdict) OK() bool {
	attempted := false
	for _, r := range v.Stages {
		switch r.Status {
		case Failed:
			return false
		case Passed:
			attempted = true
		}
	}

	return attempted
}

// Err returns the error that ended the run, if any.
func (v *Verdict) Err() error {
	for _, r := range v.Stages {
		if r.Err != nil {
			return r.Err
		}
	}

	return nil
}
