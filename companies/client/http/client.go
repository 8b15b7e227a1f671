package http

import (
	"context"
	"fmt"
	"net/url"

	"github.com/glbter/distributed-systems/admin-service/entities"
	"github.com/glbter/distributed-systems/admin-service/remote"
)

// CompaniesClient resolves holding accounts from the financial companies service.
type CompaniesClient struct {
	remote *remote.Client
}

func NewClient(c *remote.Client) *CompaniesClient {
	return &CompaniesClient{remote: c}
}

func (cc *CompaniesClient) GetCompany(ctx context.Context, id string) (entities.Company, error) {
	var company entities.Company
	if err := cc.remote.GetJSON(ctx, "/companies/"+url.PathEscape(id), &company); err != nil {
		return entities.Company{}, fmt.Errorf("get company %s: %w", id, err)
	}

	return company, nil
}
