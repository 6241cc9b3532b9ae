package entity

import "time"

// Warehouse bodega o sucursal donde se almacena inventario (multi-bodega).
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
