package models

// GraphData is the node/edge projection of the link graph used for visualization.
// It is always derived on demand and never stored.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a note (or a dangling link target) in the graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
	// BacklinkCount is the number of edges pointing at this node.
	BacklinkCount int `json:"backlink_count"`
}

// GraphEdge is a directed link from a note name to a raw link target.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Cluster is a group of notes connected to each other through links in either direction.
type Cluster struct {
	ID    int      `json:"id"`
	Size  int      `json:"size"`
	Names []string `json:"names"`
	Hub   string   `json:"hub"`
}
