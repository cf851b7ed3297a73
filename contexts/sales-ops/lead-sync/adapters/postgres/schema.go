package postgresadapter

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultNotifyChannel = "leads_changed"

	notifyFunction = "leads_notify_change"
	notifyTrigger  = "leads_notify_change"
)

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// NormalizeChannel lower-cases name and replaces separators so it can be used
// unquoted in LISTEN and inside the trigger body. Anything else is rejected.
func NormalizeChannel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultNotifyChannel, nil
	}
	replacer := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	normalized := strings.ToLower(replacer.Replace(name))
	if !channelPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid notify channel %q", name)
	}
	return normalized, nil
}

// SchemaStatements returns the DDL that creates the leads table and a row
// trigger publishing a JSON change envelope on channel.
func SchemaStatements(channel string) ([]string, error) {
	channel, err := NormalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	table := `CREATE TABLE IF NOT EXISTS ` + leadsTable + ` (
    id SERIAL PRIMARY KEY,
    client_name VARCHAR(255),
    lead_status VARCHAR(50),
    assigned_sales_rep VARCHAR(100),
    expected_value NUMERIC,
    close_date DATE
)`

	function := fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
DECLARE
    changed_id bigint;
BEGIN
    IF TG_OP = 'DELETE' THEN
        changed_id := OLD.id;
    ELSE
        changed_id := NEW.id;
    END IF;
    PERFORM pg_notify('%s', json_build_object(
        'event_type', 'lead.' || lower(TG_OP),
        'source_service', 'postgres',
        'occurred_at_utc', to_char(clock_timestamp() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"'),
        'entity_type', 'lead',
        'entity_id', changed_id::text,
        'payload_version', 1,
        'payload', json_build_object('op', TG_OP)
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql`, notifyFunction, channel)

	dropTrigger := fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, notifyTrigger, leadsTable)
	createTrigger := fmt.Sprintf(`CREATE TRIGGER %s
AFTER INSERT OR UPDATE OR DELETE ON %s
FOR EACH ROW EXECUTE FUNCTION %s()`, notifyTrigger, leadsTable, notifyFunction)

	return []string{table, function, dropTrigger, createTrigger}, nil
}
