package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const documentsTable = "documents"

// InsertDocument inserts a single DocumentRow into fintrack.documents.
func InsertDocument(ctx context.Context, row *DocumentRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertDocument: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertDocumentWithClient(ctx, client, row)
}

// InsertDocumentWithClient inserts a single DocumentRow using the provided
// BigQuery client.
func InsertDocumentWithClient(ctx context.Context, client *bigquery.Client, row *DocumentRow) error {
	inserter := client.Dataset(datasetID).Table(documentsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocument: inserting row: %w", err)
	}

	return nil
}

const documentColumns = `
	document_id,
	user_id,
	gcs_uri,
	document_type,
	source_system,
	account_id,
	layout_template,
	statement_start_date,
	statement_end_date,
	upload_ts,
	processed_ts,
	parsing_status,
	original_filename,
	file_mime_type,
	text_gcs_uri,
	metadata`

// ListUserDocumentsWithClient retrieves a user's documents, newest first.
func ListUserDocumentsWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*DocumentRow, error) {
	q := client.Query(`
		SELECT` + documentColumns + `
		FROM ` + tableRef(documentsTable) + `
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUserDocuments: reading query: %w", err)
	}

	var documents []*DocumentRow
	for {
		var row DocumentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUserDocuments: iterating: %w", err)
		}
		documents = append(documents, &row)
	}

	return documents, nil
}

// GetDocumentWithClient retrieves one document by id, or nil when absent.
func GetDocumentWithClient(ctx context.Context, client *bigquery.Client, documentID string) (*DocumentRow, error) {
	q := client.Query(`
		SELECT` + documentColumns + `
		FROM ` + tableRef(documentsTable) + `
		WHERE document_id = @document_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetDocument: reading query: %w", err)
	}

	var row DocumentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetDocument: iterating: %w", err)
	}

	return &row, nil
}

// UpdateDocumentStatusWithClient sets the parsing status of a document and,
// for terminal statuses, stamps processed_ts.
func UpdateDocumentStatusWithClient(ctx context.Context, client *bigquery.Client, documentID, status string) error {
	q := client.Query(`
		UPDATE ` + tableRef(documentsTable) + `
		SET parsing_status = @status,
		    processed_ts = IF(@status IN ('SUCCESS', 'FAILED'), CURRENT_TIMESTAMP(), processed_ts)
		WHERE document_id = @document_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "document_id", Value: documentID},
	}

	return runDML(ctx, q, "UpdateDocumentStatus")
}

// SetDocumentTextLayerWithClient records where the extracted text layer for
// a document lives.
func SetDocumentTextLayerWithClient(ctx context.Context, client *bigquery.Client, documentID, textGCSURI string) error {
	q := client.Query(`
		UPDATE ` + tableRef(documentsTable) + `
		SET text_gcs_uri = @text_gcs_uri
		WHERE document_id = @document_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "text_gcs_uri", Value: textGCSURI},
		{Name: "document_id", Value: documentID},
	}

	return runDML(ctx, q, "SetDocumentTextLayer")
}
