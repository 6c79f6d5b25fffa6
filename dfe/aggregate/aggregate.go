// Package aggregate builds the final QueryResult out of the raw records a
// distribution session collected: deduplication by access key, inclusive
// calendar-date filtering and the three result counters.
package aggregate

import (
	"fmt"
	"time"

	"github.com/fiscalgo/go-dfe-client/dfe/model"
)

const dateLayout = "2006-01-02"

// Aggregate deduplicates records by access key (first seen wins, input
// order preserved) and keeps only those whose emission date falls inside
// [inicio, fim], comparing calendar dates inclusively. Records whose
// emission date cannot be parsed are excluded, never fatal. The function is
// deterministic: the same input always yields the same QueryResult.
func Aggregate(records []model.InvoiceRecord, consulted, errored int, inicio, fim time.Time) model.QueryResult {

	filtered := inicio.IsZero() && fim.IsZero()

	seen := make(map[string]bool, len(records))
	notas := make([]model.InvoiceRecord, 0, len(records))

	for _, rec := range records {
		if seen[rec.Chave] {
			continue
		}
		seen[rec.Chave] = true

		if !filtered {
			emitted, ok := emissionDate(rec)
			if !ok {
				continue
			}
			if emitted.Before(inicio) || emitted.After(fim) {
				continue
			}
		}

		notas = append(notas, rec)
	}

	result := model.QueryResult{
		Success:         true,
		Notas:           notas,
		TotalConsultado: consulted,
		TotalErros:      errored,
		TotalSalvo:      len(notas),
	}

	result.Resumo = fmt.Sprintf("Encontradas %d notas fiscais no período", len(notas))
	result.Detalhes = []string{
		fmt.Sprintf("Documentos consultados: %d", consulted),
		fmt.Sprintf("Notas no período: %d", len(notas)),
		fmt.Sprintf("Erros: %d", errored),
	}
	if !filtered {
		result.Detalhes = append(result.Detalhes,
			fmt.Sprintf("Período consultado: %s a %s", inicio.Format(dateLayout), fim.Format(dateLayout)))
	}

	return result
}

// emissionDate reduces the emission timestamp to its calendar date. The
// service emits full RFC 3339 timestamps with offsets as well as bare
// dates; only the first ten characters matter for filtering.
func emissionDate(rec model.InvoiceRecord) (time.Time, bool) {
	if len(rec.DataEmissao) < len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, rec.DataEmissao[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
