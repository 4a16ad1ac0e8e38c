package container

import (
	"encoding/json"
	"fmt"

	domcontainer "github.com/kailas-cloud/zelastic/internal/domain/container"
)

// metaRow is the JSON-serializable representation of container metadata.
type metaRow struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

func containerToJSON(c domcontainer.Container) ([]byte, error) {
	data, err := json.Marshal(metaRow{Name: c.Name(), CreatedAt: c.CreatedAt()})
	if err != nil {
		return nil, fmt.Errorf("marshal container: %w", err)
	}
	return data, nil
}

func containerFromJSON(data []byte) (domcontainer.Container, error) {
	var row metaRow
	if err := json.Unmarshal(data, &row); err != nil {
		return domcontainer.Container{}, fmt.Errorf("unmarshal container: %w", err)
	}
	return domcontainer.Reconstruct(row.Name, row.CreatedAt), nil
}
