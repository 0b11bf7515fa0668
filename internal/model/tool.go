package model

import "time"

// Tool is an admin-defined image editing preset: a base prompt plus an
// optional JSON document describing the options users may pick when
// building the final prompt.  CustomConfig holds the raw JSON as stored
// in the `tools` table; the prompt package parses and validates it.
//
// Fields:
//  ID           – primary key identifier.
//  Icon         – icon identifier for the frontend.
//  Name         – display name.
//  Description  – short description shown in the tool picker.
//  BasePrompt   – prompt template, may contain {{ option }} placeholders.
//  CustomConfig – raw JSON option schema (nullable).
//  IsActive     – inactive tools are hidden from non-admin listings.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Tool struct {
    ID           uint64    // tools.id
    Icon         string    // tools.icon
    Name         string    // tools.name
    Description  string    // tools.description
    BasePrompt   string    // tools.base_prompt
    CustomConfig *string   // tools.custom_config (nullable JSON)
    IsActive     bool      // tools.is_active
    CreatedAt    time.Time // tools.created_at
    UpdatedAt    time.Time // tools.updated_at
}
