package export

// Column maps a row key to the label printed in the header.
type Column struct {
	Key   string
	Label string
}

// Dataset defines tabular export content.
type Dataset struct {
	Columns []Column
	Rows    []map[string]string
}

// KeyValue is a single labelled line of a document.
type KeyValue struct {
	Label string
	Value string
}

func (c Column) header() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}
