package model

import "time"

// Vehicle represents a single rentable unit of the fleet.  The booking
// engine only cares about its identity and its optimistic-lock version;
// descriptive fields exist for listing endpoints.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable label (e.g. "VW Golf #3").
//  Plate     – licence plate, unique per vehicle.
//  Active    – whether the vehicle can accept new reservations.
//  Version   – optimistic lock counter, incremented on every mutation.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Vehicle struct {
    ID        uint64    `json:"id"`         // vehicles.id
    Name      string    `json:"name"`       // vehicles.name
    Plate     string    `json:"plate"`      // vehicles.plate
    Active    bool      `json:"active"`     // vehicles.active
    Version   uint64    `json:"version"`    // vehicles.version
    CreatedAt time.Time `json:"created_at"` // vehicles.created_at
    UpdatedAt time.Time `json:"updated_at"` // vehicles.updated_at
}
