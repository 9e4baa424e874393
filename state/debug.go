package state

var (
	DBG_log_flood         = false
	DBG_log_hello         = false
	DBG_log_route_table   = false
	DBG_log_route_changes = false
	DBG_log_data          = false
)
