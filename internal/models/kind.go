package models

import "fmt"

// EntityKind discriminates the values the market layer hands out.
type EntityKind int

const (
	KindItem EntityKind = iota + 1
	KindOrder
	KindSummary
)

func (k EntityKind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindOrder:
		return "order"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

func (k EntityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EntityKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "item":
		*k = KindItem
	case "order":
		*k = KindOrder
	case "summary":
		*k = KindSummary
	default:
		return fmt.Errorf("unknown entity kind %q", text)
	}
	return nil
}

// Entity is implemented by Item, Order and Summary.
type Entity interface {
	Kind() EntityKind
}
