package types

// Diagnostics carries every quality measurement taken for a day, regardless
// of which rule (if any) rejected it.
type Diagnostics struct {
	PointCount    int              `json:"pointCount"`
	IrregularGaps int              `json:"irregularGaps"`
	NullCounts    map[DataType]int `json:"nullCounts"`
	PowerOutliers int              `json:"powerOutliers"`
}

// Verdict is the accept/reject decision for one day's data. It never carries
// a modified copy of the data; rejection only means the day is dropped.
type Verdict struct {
	Accepted    bool        `json:"accepted"`
	Reason      string      `json:"reason,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
