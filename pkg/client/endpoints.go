package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
)

// Each search method has the shape of a page-fetching function and can be
// handed to pager.New directly.

// SearchReads fetches one page of reads.
func (c *Client) SearchReads(ctx context.Context, req *genomics.SearchReadsRequest) (*genomics.SearchReadsResponse, error) {
	return post[genomics.SearchReadsResponse](ctx, c, "/v1/reads/search", req, req.GetFields())
}

// SearchVariants fetches one page of variants.
func (c *Client) SearchVariants(ctx context.Context, req *genomics.SearchVariantsRequest) (*genomics.SearchVariantsResponse, error) {
	return post[genomics.SearchVariantsResponse](ctx, c, "/v1/variants/search", req, req.GetFields())
}

// SearchReferences fetches one page of references.
func (c *Client) SearchReferences(ctx context.Context, req *genomics.SearchReferencesRequest) (*genomics.SearchReferencesResponse, error) {
	return post[genomics.SearchReferencesResponse](ctx, c, "/v1/references/search", req, req.GetFields())
}

// SearchReadGroupSets fetches one page of read group sets.
func (c *Client) SearchReadGroupSets(ctx context.Context, req *genomics.SearchReadGroupSetsRequest) (*genomics.SearchReadGroupSetsResponse, error) {
	return post[genomics.SearchReadGroupSetsResponse](ctx, c, "/v1/readgroupsets/search", req, req.GetFields())
}

// SearchVariantSets fetches one page of variant sets.
func (c *Client) SearchVariantSets(ctx context.Context, req *genomics.SearchVariantSetsRequest) (*genomics.SearchVariantSetsResponse, error) {
	return post[genomics.SearchVariantSetsResponse](ctx, c, "/v1/variantsets/search", req, req.GetFields())
}

// SearchCallSets fetches one page of call sets.
func (c *Client) SearchCallSets(ctx context.Context, req *genomics.SearchCallSetsRequest) (*genomics.SearchCallSetsResponse, error) {
	return post[genomics.SearchCallSetsResponse](ctx, c, "/v1/callsets/search", req, req.GetFields())
}

// ListDatasets fetches one page of the datasets of a project.
func (c *Client) ListDatasets(ctx context.Context, req *genomics.ListDatasetsRequest) (*genomics.ListDatasetsResponse, error) {
	if req.ProjectID == "" {
		return nil, errs.Validation("projectId", "is required")
	}
	query := url.Values{}
	query.Set("projectId", req.ProjectID)
	if req.PageToken != "" {
		query.Set("pageToken", req.PageToken)
	}
	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	return fetch[genomics.ListDatasetsResponse](ctx, c, call{
		endpoint: "/v1/datasets",
		method:   http.MethodGet,
		path:     "/v1/datasets",
		query:    query,
		fields:   req.GetFields(),
	})
}

// GetVariantSet fetches a variant set including its reference bounds.
func (c *Client) GetVariantSet(ctx context.Context, id string) (*genomics.VariantSet, error) {
	if id == "" {
		return nil, errs.Validation("variantSetId", "is required")
	}
	return fetch[genomics.VariantSet](ctx, c, call{
		endpoint: "/v1/variantsets/get",
		method:   http.MethodGet,
		path:     "/v1/variantsets/" + url.PathEscape(id),
	})
}

func post[T any](ctx context.Context, c *Client, path string, req any, fields string) (*T, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}
	return fetch[T](ctx, c, call{
		endpoint: path,
		method:   http.MethodPost,
		path:     path,
		body:     body,
		fields:   fields,
	})
}

// fetch runs cl and decodes the JSON answer into a T.
func fetch[T any](ctx context.Context, c *Client, cl call) (*T, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := new(T)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", cl.endpoint, err)
	}
	return out, nil
}
