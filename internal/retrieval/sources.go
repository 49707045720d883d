package retrieval

import (
	"context"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// LoadRepoFiles lists the files tracked at HEAD of the repository at path
// and returns them as file documents for indexing. Walking the commit tree
// rather than the filesystem keeps untracked clutter out of the corpus.
func LoadRepoFiles(repoPath string) ([]Document, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", repoPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading HEAD tree: %w", err)
	}

	var docs []Document
	err = tree.Files().ForEach(func(f *object.File) error {
		docs = append(docs, Document{
			Kind:    RefFile,
			Locator: f.Name,
			Content: f.Name,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}
	return docs, nil
}

// GitHubIssueRetriever looks up related issues in a repository through the
// GitHub search API.
type GitHubIssueRetriever struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubIssueRetriever creates a retriever for the given repository. An
// empty token uses unauthenticated (rate limited) access.
func NewGitHubIssueRetriever(ctx context.Context, token, owner, repo string) *GitHubIssueRetriever {
	var client *github.Client
	if token == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}
	return &GitHubIssueRetriever{client: client, owner: owner, repo: repo}
}

// Retrieve implements Retriever.
func (r *GitHubIssueRetriever) Retrieve(ctx context.Context, query string, maxResults int) ([]Reference, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	q := fmt.Sprintf("%s repo:%s/%s is:issue", query, r.owner, r.repo)
	result, _, err := r.client.Search.Issues(ctx, q, &github.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: maxResults},
	})
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	refs := make([]Reference, 0, len(result.Issues))
	for i, issue := range result.Issues {
		if i >= maxResults {
			break
		}
		refs = append(refs, Reference{
			Kind:    RefIssue,
			Locator: fmt.Sprintf("%s/%s#%d", r.owner, r.repo, issue.GetNumber()),
			Summary: issue.GetTitle(),
			// Search order is the only relevance signal the API exposes.
			Score: 1 - float64(i)/float64(maxResults),
		})
	}
	return refs, nil
}
