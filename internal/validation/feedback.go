package validation

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"certiflow/internal/dossier"
	"certiflow/internal/tabular"
)

var (
	criticityPatterns    = []string{`^Criticit[ée]$`}
	criticityAltPatterns = []string{`critic`}
	commentPatterns      = []string{`comment`}

	treatedKeywords = regexp.MustCompile(`(?i)(résolu|resolu|corrigé|corrige|pris en compte)`)

	// criticityWeights scores evaluator feedback in the impact report.
	criticityWeights = map[string]int{
		"haute":   3,
		"moyenne": 2,
		"basse":   1,
	}
)

// GererRetours triages evaluator feedback from retours.csv.
//
// It always writes retours_traite_nontraite.csv, the count of treated and
// untreated comments (a comment is treated when it mentions "résolu",
// "corrigé" or "pris en compte"). Feedback rated "elevee" is exported to
// retours_critiques.csv and fails the step.
func GererRetours(ctx context.Context, d *dossier.Dossier) error {
	t, err := readData(d, RetoursFile)
	if err != nil {
		return err
	}
	critCol, err := t.FindColumn(criticityPatterns, criticityAltPatterns)
	if err != nil {
		return err
	}
	commentCol, err := t.FindColumn(commentPatterns, nil)
	if err != nil {
		return err
	}

	critical := t.Filter(func(row []string) bool {
		switch strings.ToLower(t.Value(row, critCol)) {
		case "elevee", "élevée":
			return true
		}
		return false
	})

	marked := t.WithColumn("Traité", func(row []string) string {
		if treatedKeywords.MatchString(t.Value(row, commentCol)) {
			return "Oui"
		}
		return "Non"
	})
	summary := countBy(marked, "Traité", "Traite")
	if err := writeAudit(d, RetoursTraitementFile, summary); err != nil {
		return err
	}

	return reportFindings(d, RetoursCritiquesFile, "critical feedback", critical)
}

// AnalyseRetours writes the feedback impact report impact_retours.csv.
//
// The report lists occurrences and weight per criticity level (haute=3,
// moyenne=2, basse=1, others 0) followed by a "Score global" row holding the
// weighted sum. When retours.csv also has Exigence and Commentaire columns,
// comments grouped per requirement are written to synthese_retours.csv.
func AnalyseRetours(ctx context.Context, d *dossier.Dossier) error {
	t, err := readData(d, RetoursFile)
	if err != nil {
		return err
	}
	critCol, err := t.FindColumn(criticityAltPatterns, nil)
	if err != nil {
		return err
	}

	report := tabular.New("Criticite", "Occurrences", "Poids")
	counts := countBy(t, critCol, "Criticite")
	score := 0
	for _, row := range counts.Rows {
		level := row[0]
		n, _ := strconv.Atoi(row[1])
		weight := criticityWeights[level]
		score += n * weight
		report.Append(level, row[1], strconv.Itoa(weight))
	}
	report.Append("Score global", strconv.Itoa(score), "")

	if err := writeAudit(d, ImpactRetoursFile, report); err != nil {
		return err
	}

	if t.RequireColumns("Exigence", "Commentaire") != nil {
		d.Logger().Debug("feedback synthesis skipped: Exigence/Commentaire columns absent")
		return nil
	}
	return writeAudit(d, SyntheseRetoursFile, synthesis(t, critCol))
}

// countBy counts rows per lower-cased value of column, most frequent first.
func countBy(t *tabular.Table, column, label string) *tabular.Table {
	counts := make(map[string]int)
	var order []string
	for _, row := range t.Rows {
		v := strings.ToLower(t.Value(row, column))
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	out := tabular.New(label, "Occurrences")
	for _, v := range order {
		out.Append(v, strconv.Itoa(counts[v]))
	}
	return out
}

// synthesis groups comments and criticities per requirement, in first-seen order.
func synthesis(t *tabular.Table, critCol string) *tabular.Table {
	type group struct {
		comments    []string
		criticities []string
	}
	groups := make(map[string]*group)
	var order []string
	for _, row := range t.Rows {
		req := t.Value(row, "Exigence")
		g, ok := groups[req]
		if !ok {
			g = &group{}
			groups[req] = g
			order = append(order, req)
		}
		g.comments = append(g.comments, t.Value(row, "Commentaire"))
		g.criticities = append(g.criticities, t.Value(row, critCol))
	}

	out := tabular.New("Exigence", "Commentaire", "Criticité")
	for _, req := range order {
		g := groups[req]
		out.Append(req, strings.Join(g.comments, " | "), strings.Join(g.criticities, ", "))
	}
	return out
}
