package outbound

// Command is one outbound JSON object.
type Command map[string]any

const (
	// DefaultComputeKey names the deferred-compute batch command.
	DefaultComputeKey = "uiCompute"
	// SaveModelID is the identifier the persist affordance always addresses.
	SaveModelID = "saveModel"
)

// RowRef addresses one row of a table.
type RowRef struct {
	ID    string `json:"id"`
	RowNr int    `json:"rowNr"`
}

// AddRow asks the device to add a row to a table.
func AddRow(tableID string, row int) Command {
	return Command{"addRow": RowRef{ID: tableID, RowNr: row}}
}

// DelRow asks the device to delete a row from a table.
func DelRow(tableID string, row int) Command {
	return Command{"delRow": RowRef{ID: tableID, RowNr: row}}
}

// View asks the device to remember the selected view.
func View(id string) Command {
	return Command{"view": id}
}

// Theme asks the device to remember the selected theme.
func Theme(value string) Command {
	return Command{"theme": value}
}

// Value carries a user edit of one variable.
func Value(id string, value any) Command {
	return Command{id: value}
}
