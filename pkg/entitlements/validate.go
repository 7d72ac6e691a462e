package entitlements

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fairground/fairtool/pkg/plistutil"
	"github.com/fairground/fairtool/pkg/seal"
)

// FairUsageKey is the bundle-metadata dictionary that maps entitlement names
// to their human-readable justifications.
const FairUsageKey = "FairUsage"

// ErrSandboxRequired is returned when the sandboxing entitlement is not
// explicitly true.
var ErrSandboxRequired = errors.New("app sandbox entitlement must be explicitly enabled")

// ForbiddenError reports an entitlement that is categorically forbidden:
// it maps to no usage-description key at all.
type ForbiddenError struct {
	Entitlement string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden entitlement: %s", e.Entitlement)
}

// MissingUsageError reports an entitlement whose candidate usage-description
// keys all resolved to blank strings.
type MissingUsageError struct {
	Entitlement string
	Candidates  []string
}

func (e *MissingUsageError) Error() string {
	return fmt.Sprintf("entitlement %s requires a usage description (checked keys: %s)",
		e.Entitlement, strings.Join(e.Candidates, ", "))
}

// Options adjust validation for allow-listed special cases.
type Options struct {
	// CatalogBrowserApp exempts the catalog's own self-referential browser
	// app from the sandbox requirement.
	CatalogBrowserApp bool
}

// Validate cross-checks an entitlement declaration against the app's
// usage-description map and returns the permission list in canonical order.
//
// Every entitlement present with a non-false value must either need no
// justification, or resolve at least one of its candidate usage-description
// keys to a non-blank string. Failing apps get no permission list at all;
// there is no partial result.
func Validate(ent, usage plistutil.Dict, opts Options) ([]seal.Permission, error) {
	if !opts.CatalogBrowserApp {
		sandboxed, ok := ent.Bool(KindAppSandbox.EntitlementKey())
		if !ok || !sandboxed {
			return nil, ErrSandboxRequired
		}
	}

	granted := make(map[Kind]bool)
	for key := range ent {
		value := ent[key]
		if b, isBool := value.(bool); isBool && !b {
			continue // explicitly disabled, ignore entirely
		}

		kind, ok := KindForKey(key)
		if !ok {
			return nil, &ForbiddenError{Entitlement: key}
		}
		if _, permitted := usageKeys[kind]; !permitted {
			return nil, &ForbiddenError{Entitlement: key}
		}
		granted[kind] = true
	}

	var permissions []seal.Permission
	for _, kind := range canonicalOrder {
		if !granted[kind] {
			continue
		}
		candidates := usageKeys[kind]
		description := ""
		if len(candidates) > 0 {
			description = resolveUsage(usage, candidates)
			if description == "" {
				return nil, &MissingUsageError{Entitlement: kind.EntitlementKey(), Candidates: candidates}
			}
		}
		permissions = append(permissions, seal.Permission{
			Type:             string(kind),
			UsageDescription: description,
		})
	}
	return permissions, nil
}

// ValidatePermissions re-checks an already-sealed permission list against
// the policy table. Catalog building uses this to exclude apps whose posted
// seal carries a forbidden or unjustified grant.
func ValidatePermissions(permissions []seal.Permission) error {
	for _, p := range permissions {
		candidates, permitted := usageKeys[Kind(p.Type)]
		if !permitted {
			return &ForbiddenError{Entitlement: Kind(p.Type).EntitlementKey()}
		}
		if len(candidates) > 0 && strings.TrimSpace(p.UsageDescription) == "" {
			return &MissingUsageError{Entitlement: Kind(p.Type).EntitlementKey(), Candidates: candidates}
		}
	}
	return nil
}

// resolveUsage returns the first non-blank string among the candidate keys.
func resolveUsage(usage plistutil.Dict, candidates []string) string {
	for _, key := range candidates {
		if s, ok := usage.String(key); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// UsageDescriptions assembles the usage-description map for an app from its
// bundle metadata: top-level *UsageDescription strings plus the nested
// FairUsage dictionary, with FairUsage entries taking precedence.
func UsageDescriptions(info plistutil.Dict) plistutil.Dict {
	usage := plistutil.Dict{}
	for _, key := range info.Keys() {
		if strings.HasSuffix(key, "UsageDescription") {
			if s, ok := info.String(key); ok {
				usage[key] = s
			}
		}
	}
	if fair, ok := info.Dict(FairUsageKey); ok {
		for _, key := range fair.Keys() {
			if s, ok := fair.String(key); ok {
				usage[key] = s
			}
		}
	}
	return usage
}
