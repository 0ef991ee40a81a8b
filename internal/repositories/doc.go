// Package repositories implements read access to the curated genre table.
//
// [GenreRepository] never writes. Column names interpolated into SQL come only from
// [models.Genres], and the table name is checked against a strict identifier pattern
// when the repository is built, so request input can never reach the query text.
// Values are bound as placeholders and rewritten per dialect by [shared.Database.Rebind].
package repositories
