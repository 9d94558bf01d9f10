package percentile

import "fmt"

// Row is the percentile summary for one variable at one time step.
// Count is the number of non-missing samples the row was built from; a row
// with Count == 0 carries zero values and should be drawn as a gap.
type Row struct {
	Time  int     `json:"eventNumber"`
	P0    float64 `json:"percentile0"`
	P10   float64 `json:"percentile10"`
	P20   float64 `json:"percentile20"`
	P30   float64 `json:"percentile30"`
	P40   float64 `json:"percentile40"`
	P60   float64 `json:"percentile60"`
	P70   float64 `json:"percentile70"`
	P80   float64 `json:"percentile80"`
	P90   float64 `json:"percentile90"`
	P100  float64 `json:"percentile100"`
	Count int     `json:"count"`
}

// NewRow computes the row for time step t from the given samples.
func NewRow(t int, samples []float64) Row {
	row := Row{Time: t}
	values := Compute(samples, Targets)
	if values == nil {
		return row
	}
	for i, p := range Targets {
		row.set(int(p), values[i])
	}
	for _, s := range samples {
		if !IsMissing(s) {
			row.Count++
		}
	}
	return row
}

// Empty reports whether the row was built from no samples.
func (r Row) Empty() bool {
	return r.Count == 0
}

// Get returns the value stored under a percentile label.
func (r Row) Get(label int) (float64, error) {
	switch label {
	case 0:
		return r.P0, nil
	case 10:
		return r.P10, nil
	case 20:
		return r.P20, nil
	case 30:
		return r.P30, nil
	case 40:
		return r.P40, nil
	case 60:
		return r.P60, nil
	case 70:
		return r.P70, nil
	case 80:
		return r.P80, nil
	case 90:
		return r.P90, nil
	case 100:
		return r.P100, nil
	}
	return 0, fmt.Errorf("unknown percentile label %d", label)
}

// Values returns the row's values ordered like Labels.
func (r Row) Values() []float64 {
	return []float64{r.P0, r.P10, r.P20, r.P30, r.P40, r.P60, r.P70, r.P80, r.P90, r.P100}
}

// FromValues builds a row from values ordered like Labels.
func FromValues(t int, values []float64, count int) Row {
	row := Row{Time: t, Count: count}
	for i, label := range Labels {
		if i < len(values) {
			row.set(label, values[i])
		}
	}
	return row
}

func (r *Row) set(label int, v float64) {
	switch label {
	case 0:
		r.P0 = v
	case 10:
		r.P10 = v
	case 20:
		r.P20 = v
	case 30:
		r.P30 = v
	case 40:
		r.P40 = v
	case 60:
		r.P60 = v
	case 70:
		r.P70 = v
	case 80:
		r.P80 = v
	case 90:
		r.P90 = v
	case 100:
		r.P100 = v
	}
}
