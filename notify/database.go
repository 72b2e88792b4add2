package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

// databaseDeliverer inserts one row per delivery into the
// monitor_notifications sink table. One *pgxpool.Pool is
// shared across every database trigger pointed at the same DSN; pools are
// keyed and built lazily by the Dispatcher.
type databaseDeliverer struct {
	pool      *pgxpool.Pool
	tableName string
}

func newDatabaseDeliverer(pool *pgxpool.Pool, t config.Trigger) *databaseDeliverer {
	table := t.TableName
	if table == "" {
		table = "monitor_notifications"
	}
	return &databaseDeliverer{pool: pool, tableName: table}
}

func (d *databaseDeliverer) deliver(ctx context.Context, rendered string, match filter.Match) error {
	matchedConditions, err := json.Marshal(match.MatchedConditions)
	if err != nil {
		return fmt.Errorf("%w: encoding matched_conditions: %v", ErrPermanent, err)
	}
	decodedArgs, err := json.Marshal(match.DecodedArgs)
	if err != nil {
		return fmt.Errorf("%w: encoding decoded_args: %v", ErrPermanent, err)
	}
	variables := match.Variables
	if variables == nil {
		variables = map[string]any{}
	}
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("%w: encoding variables: %v", ErrPermanent, err)
	}
	additionalFields, err := json.Marshal(map[string]any{"rendered_message": rendered})
	if err != nil {
		return fmt.Errorf("%w: encoding additional_fields: %v", ErrPermanent, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(transaction_hash, block_number, network, monitor_name, matched_conditions, decoded_args, variables, additional_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.tableName)

	_, err = d.pool.Exec(ctx, query,
		match.TxHash, match.BlockNumber, match.NetworkSlug, match.MonitorName,
		matchedConditions, decodedArgs, variablesJSON, additionalFields,
	)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", d.tableName, err)
	}
	return nil
}
