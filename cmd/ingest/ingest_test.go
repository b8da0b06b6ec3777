package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"krishi-mitra-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleReport = &models.IngestReport{
	RunID: "run-1",
	Model: "all-minilm",
	Documents: []models.DocumentReport{
		{Name: "soil.pdf", Chunks: 12},
		{Name: "scan.pdf", Skipped: true, Reason: "malformed PDF"},
	},
	TotalChunks: 12,
}

func TestPrintReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport, false))

	out := buf.String()
	assert.Contains(t, out, "soil.pdf")
	assert.Contains(t, out, "skipped: malformed PDF")
	assert.Contains(t, out, "12 chunks from 1 documents (1 skipped), model all-minilm, run run-1")
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport, true))

	var decoded models.IngestReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Documents, 2)
}

func TestIngestFlags(t *testing.T) {
	cmd := newIngestCmd()
	for _, name := range []string{"corpus", "data-dir", "enqueue", "json", "no-progress"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
