package utils

// VideoAggregate holds the dashboard counters derived from per-patient
// video counts.
type VideoAggregate struct {
	TotalVideos        int `json:"totalVideos"`
	PatientsWithVideos int `json:"patientsWithVideos"`
}

// AggregateVideos computes the dashboard counters from already-fetched video
// counts, one entry per patient.
func AggregateVideos(counts []int) VideoAggregate {
	var agg VideoAggregate
	for _, n := range counts {
		agg.TotalVideos += n
		if n > 0 {
			agg.PatientsWithVideos++
		}
	}
	return agg
}
