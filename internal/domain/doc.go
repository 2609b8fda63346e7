// Package domain contains the core business entities and domain logic:
// tasks, goals, entity links, tracker mappings, and inbox items, with
// closed status enumerations and fallible parsing at the boundary. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
