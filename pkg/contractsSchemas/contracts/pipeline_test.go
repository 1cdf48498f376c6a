package contracts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

func TestSheetToMetrics(t *testing.T) {
	doc := strings.Join([]string{
		"CONTRATOS MUNICIPAIS",
		"Atualizado em 02/05/2024",
		"-",
		"NUM,SECRETARIA,OBJETO,FORNECEDOR,INICIO,VENCIMENTO,DIAS,SITUACAO",
		`1,SAÚDE,"Limpeza, higienização",ACME LTDA,01/01/2024,12/05/2024,10,VIGENTE`,
		`2,EDUCAÇÃO,Merenda,Alimentos SA,01/01/2023,29/04/2024,-3,VENCIDO`,
	}, "\n")

	s := sheet.Parse(doc)
	require.Len(t, s.Records, 2)

	m := DefaultSchema.Metrics(s.Records)
	assert.Equal(t, 2, m.Total)
	assert.Equal(t, 1, m.Active)
	assert.Equal(t, 1, m.Expired)
	assert.Equal(t, 1, m.ExpiringSoon)

	overdue := DefaultSchema.Classify(s.Records[1]).Badge()
	assert.Equal(t, OverdueBadge, overdue.Kind)
	assert.Equal(t, 3, overdue.Days)

	active := DefaultSchema.Filter(s.Records, Criteria{Status: Active})
	require.Len(t, active, 1)
	assert.Equal(t, "Limpeza, higienização", active[0].Get("OBJETO"))
}

func TestFilterThenPaginate(t *testing.T) {
	lines := []string{"T", "D", "-", "NUM,SECRETARIA,OBJETO,FORNECEDOR,INICIO,VENCIMENTO,DIAS,SITUACAO"}
	for i := 0; i < 20; i++ {
		status := "VIGENTE"
		if i%6 == 5 {
			status = "VENCIDO"
		}
		lines = append(lines, fmt.Sprintf("%d,SAÚDE,Objeto %d,F,01/01/2024,31/12/2024,100,%s", i, i, status))
	}
	s := sheet.Parse(strings.Join(lines, "\n"))
	require.Len(t, s.Records, 20)

	filtered := DefaultSchema.Filter(s.Records, Criteria{Status: InForceOnly})
	require.Len(t, filtered, 17)
	assert.Equal(t, 3, PageCount(len(filtered), DefaultPageSize))
	assert.Len(t, Page(filtered, 3, DefaultPageSize), 1)
	assert.Empty(t, Page(filtered, 4, DefaultPageSize))
}
