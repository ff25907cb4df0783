package domain

// EventType names a tracked economic release calendar.
type EventType string

const (
	EventFOMC        EventType = "fomc"
	EventCPI         EventType = "cpi"
	EventNFP         EventType = "nfp"
	EventPPI         EventType = "ppi"
	EventRetailSales EventType = "retail_sales"
	EventGDP         EventType = "gdp"
	EventPCE         EventType = "pce"
)

// EventTypes lists every tracked calendar in display order.
func EventTypes() []EventType {
	return []EventType{
		EventFOMC, EventCPI, EventNFP, EventPPI,
		EventRetailSales, EventGDP, EventPCE,
	}
}

// Valid reports whether t names a tracked calendar.
func (t EventType) Valid() bool {
	switch t {
	case EventFOMC, EventCPI, EventNFP, EventPPI,
		EventRetailSales, EventGDP, EventPCE:
		return true
	}
	return false
}
