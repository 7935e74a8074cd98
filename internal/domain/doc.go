// Package domain models the national water-object registry: raw API records,
// the normalized view model, and the pure derivations the dashboard shows.
//
// # Registry Data Conventions
//
// Records come from the registry's REST API as JSON. Foreign keys (region,
// resource_type, water_type) are nullable integers resolved against three
// dictionaries of {id, name}. Coordinates arrive as numbers or numeric strings
// and are often missing. passport_date is a bare YYYY-MM-DD date.
//
// technical_condition is a 1–5 category, 1 best and 5 worst. Anything else,
// including a missing value, normalizes to 0 ("unknown").
//
// pdf links the scanned passport; a missing link is represented by "#".
//
// # Priority
//
// The survey priority score is
//
//	(6 - technical_condition) * 3 + passport age in Julian years
//
// and classifies as Высокий (>= 12), Средний (>= 6) or Низкий. Note that the
// condition term is largest for the best condition; see [ComputeScore].
//
// The backend may supply its own score (priority_score, or the legacy
// priority field) and an explicit priority_level. Supplied values always win
// over the local formula; see [Normalize].
//
// # Placeholders
//
// Lookups never fail. Unknown ids render as "Регион <id>", "Тип <id>" and
// "Тип воды <id>"; a missing water type renders as "—".
package domain
