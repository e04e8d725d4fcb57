package routing

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/pkg/notion"
)

// LoadFromNotion reads active territory rows from a Notion database. Each row
// has a "Country" title (ISO code or DEFAULT) and an "Owner" email or text
// property.
func LoadFromNotion(ctx context.Context, client notion.Client, dbID string) (Table, error) {
	pages, err := notion.QueryAll(ctx, client, dbID, notion.ActiveFilter())
	if err != nil {
		return nil, eris.Wrap(err, "routing: load territory table")
	}

	raw := make(map[string]string, len(pages))
	for _, p := range pages {
		country, owner, err := parseTerritoryPage(p)
		if err != nil {
			zap.L().Warn("routing: skipping malformed territory page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		raw[country] = owner
	}

	t := normalize(raw)
	if len(t) == 0 {
		return nil, eris.Errorf("routing: notion database %s has no active territories", dbID)
	}
	return t, nil
}

func parseTerritoryPage(p notionapi.Page) (string, string, error) {
	country := notion.Text(p, "Country")
	if country == "" {
		return "", "", eris.New("missing Country")
	}
	owner := notion.Text(p, "Owner")
	if owner == "" {
		return "", "", eris.Errorf("missing Owner for %s", country)
	}
	return country, owner, nil
}
