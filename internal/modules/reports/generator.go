package reports

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"budget/internal/modules/entries"
)

// generators is the dispatch table from report kind to aggregation function.
// Every function is pure: full entry set in, document out.
var generators = map[Kind]func([]entries.Entry) Document{
	ExpensesPerCategory: GenerateExpensesPerCategory,
	ExpensesPerInterval: GenerateExpensesPerInterval,
	MeanExpensesPerDay:  GenerateMeanExpensesPerDay,
}

// Time granularities of the symmetric reports. The total granularity has a
// single bucket labeled "total".
const (
	granularityMonth = "month"
	granularityYear  = "year"
	granularityTotal = "total"
)

// GenerateExpensesPerCategory builds, for each time granularity, a map from
// bucket label to the per-category sums within that bucket:
//
//	{granularity: {bucket: {"category": [...], "amount": [...]}}}
//
// Month buckets are labeled YYYY-MM, year buckets YYYY. Only positive
// amounts contribute; sums are rounded to cents after summation.
func GenerateExpensesPerCategory(list []entries.Entry) Document {
	expenses := onlyExpenses(list)

	doc := Document{}
	for _, granularity := range []string{granularityMonth, granularityYear, granularityTotal} {
		sums := map[string]map[string]float64{}
		for _, e := range expenses {
			bucket := bucketLabel(e.Date, granularity)
			if sums[bucket] == nil {
				sums[bucket] = map[string]float64{}
			}
			sums[bucket][e.Category] += e.Amount
		}

		buckets := map[string]Buckets{}
		for bucket, perCategory := range sums {
			categories := sortedKeys(perCategory)
			amounts := make([]float64, len(categories))
			for i, c := range categories {
				amounts[i] = round2(perCategory[c])
			}
			buckets[bucket] = Buckets{"category": categories, "amount": amounts}
		}
		doc[granularity] = buckets
	}
	return doc
}

// GenerateExpensesPerInterval is the symmetric view of
// GenerateExpensesPerCategory: category on the outside, time buckets inside:
//
//	{category: {granularity: {<granularity>: [...], "amount": [...]}}}
//
// The total granularity collapses to a single-element pair
// (["total"], [grand total]).
func GenerateExpensesPerInterval(list []entries.Entry) Document {
	expenses := onlyExpenses(list)

	doc := Document{}
	byCategory := map[string][]entries.Entry{}
	for _, e := range expenses {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	for category, group := range byCategory {
		granularities := map[string]Buckets{}
		for _, granularity := range []string{granularityMonth, granularityYear} {
			sums := map[string]float64{}
			for _, e := range group {
				sums[bucketLabel(e.Date, granularity)] += e.Amount
			}
			labels := sortedKeys(sums)
			amounts := make([]float64, len(labels))
			for i, l := range labels {
				amounts[i] = round2(sums[l])
			}
			granularities[granularity] = Buckets{granularity: labels, "amount": amounts}
		}

		var grand float64
		for _, e := range group {
			grand += e.Amount
		}
		granularities[granularityTotal] = Buckets{
			granularityTotal: []string{granularityTotal},
			"amount":         []float64{round2(grand)},
		}

		doc[category] = granularities
	}
	return doc
}

// GenerateMeanExpensesPerDay sums positive amounts per calendar day and
// reports the day series together with its mean.
func GenerateMeanExpensesPerDay(list []entries.Entry) Document {
	expenses := onlyExpenses(list)

	sums := map[string]float64{}
	for _, e := range expenses {
		sums[e.Date] += e.Amount
	}

	days := sortedKeys(sums)
	amounts := make([]float64, len(days))
	for i, d := range days {
		amounts[i] = round2(sums[d])
	}

	mean := 0.0
	if len(amounts) > 0 {
		mean = round2(stat.Mean(amounts, nil))
	}

	return Document{
		"plot_data": Buckets{"x": days, "y": amounts},
		"mean":      mean,
	}
}

// onlyExpenses keeps strictly positive amounts. Refunds and corrections stay
// in the store but never reach a report.
func onlyExpenses(list []entries.Entry) []entries.Entry {
	out := make([]entries.Entry, 0, len(list))
	for _, e := range list {
		if e.Amount > 0 {
			out = append(out, e)
		}
	}
	return out
}

// bucketLabel truncates a YYYY-MM-DD date to the bucket key of the given
// granularity.
func bucketLabel(date, granularity string) string {
	switch granularity {
	case granularityMonth:
		if len(date) >= 7 {
			return date[:7]
		}
	case granularityYear:
		if len(date) >= 4 {
			return date[:4]
		}
	}
	return granularityTotal
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// round2 rounds to cents, half to even, applied once after summation.
func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
