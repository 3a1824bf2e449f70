package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const accountsTable = "accounts"

// UpsertAccountWithClient inserts an account or updates the existing one
// matched by (user_id, account_number, currency). Returns the account id.
func UpsertAccountWithClient(ctx context.Context, client *bigquery.Client, row *AccountRow) (string, error) {
	if row.AccountID == "" {
		row.AccountID = uuid.NewString()
	}

	q := client.Query(`
		MERGE ` + tableRef(accountsTable) + ` t
		USING (
			SELECT @user_id AS user_id, @account_number AS account_number, @currency AS currency
		) s
		ON t.user_id = s.user_id
		   AND t.account_number = s.account_number
		   AND t.currency = s.currency
		WHEN MATCHED THEN UPDATE SET
			institution_id = @institution_id,
			account_name = @account_name,
			sort_code = @sort_code,
			account_type = @account_type,
			updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (
			account_id, user_id, institution_id, account_name, account_number,
			sort_code, currency, account_type, created_ts
		)
		VALUES (
			@account_id, @user_id, @institution_id, @account_name, @account_number,
			@sort_code, @currency, @account_type, CURRENT_TIMESTAMP()
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "user_id", Value: row.UserID},
		{Name: "institution_id", Value: row.InstitutionID},
		{Name: "account_name", Value: row.AccountName},
		{Name: "account_number", Value: row.AccountNumber},
		{Name: "sort_code", Value: row.SortCode},
		{Name: "currency", Value: row.Currency},
		{Name: "account_type", Value: row.AccountType},
	}

	if err := runDML(ctx, q, "UpsertAccount"); err != nil {
		return "", err
	}

	return row.AccountID, nil
}

// ListUserAccountsWithClient retrieves a user's accounts, newest first.
func ListUserAccountsWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*AccountRow, error) {
	q := client.Query(`
		SELECT
			account_id,
			user_id,
			institution_id,
			account_name,
			account_number,
			sort_code,
			currency,
			account_type,
			created_ts,
			updated_ts
		FROM ` + tableRef(accountsTable) + `
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUserAccounts: reading query: %w", err)
	}

	var accounts []*AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUserAccounts: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}
