package column

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Trim returns a transform that strips leading and trailing whitespace
// from string values. Non-string values pass through unchanged.
func Trim() Transform {
	return func(_ context.Context, v any) (any, error) {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return v, nil
	}
}

// Lower returns a transform that lower-cases string values using
// language-neutral case mapping.
func Lower() Transform {
	c := cases.Lower(language.Und)
	return func(_ context.Context, v any) (any, error) {
		if s, ok := v.(string); ok {
			return c.String(s), nil
		}
		return v, nil
	}
}

// Upper returns a transform that upper-cases string values.
func Upper() Transform {
	c := cases.Upper(language.Und)
	return func(_ context.Context, v any) (any, error) {
		if s, ok := v.(string); ok {
			return c.String(s), nil
		}
		return v, nil
	}
}

// Title returns a transform that title-cases string values.
func Title() Transform {
	c := cases.Title(language.Und)
	return func(_ context.Context, v any) (any, error) {
		if s, ok := v.(string); ok {
			return c.String(s), nil
		}
		return v, nil
	}
}

// Chain composes transforms left to right. The zero chain is the
// identity.
func Chain(fns ...Transform) Transform {
	return func(ctx context.Context, v any) (any, error) {
		var err error
		for _, fn := range fns {
			if v, err = fn(ctx, v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}
