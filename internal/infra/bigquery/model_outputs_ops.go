package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"
)

const modelOutputsTable = "model_outputs"

// InsertModelOutputWithClient inserts a single ModelOutputRow. Uses DML
// INSERT to avoid streaming buffer issues with immediately-following reads.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, row *ModelOutputRow) error {
	q := client.Query(`
		INSERT INTO ` + tableRef(modelOutputsTable) + ` (
			output_id, parsing_run_id, document_id,
			model_name, model_version, output_kind,
			raw_json, created_ts, notes
		)
		VALUES (
			@output_id, @parsing_run_id, @document_id,
			@model_name, @model_version, @output_kind,
			@raw_json, CURRENT_TIMESTAMP(), @notes
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "parsing_run_id", Value: row.ParsingRunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "model_version", Value: row.ModelVersion},
		{Name: "output_kind", Value: row.OutputKind},
		{Name: "raw_json", Value: row.RawJSON},
		{Name: "notes", Value: row.Notes},
	}

	return runDML(ctx, q, "InsertModelOutput")
}
