// Package registry is a client for the ClinicalTrials.gov v2 studies API,
// used to ingest trial records into the local catalog.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://clinicaltrials.gov/api/v2"

	defaultPageSize = 100
	maxPages        = 50
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Study is the flattened registry record consumed by the catalog importer.
type Study struct {
	NCTID           string
	Title           string
	Phase           string
	Description     string
	EligibilityText string
	Status          string
	StartDate       string
	CompletionDate  string
	Sponsor         string
	Locations       []string
	MinimumAge      string
	MaximumAge      string
	Sex             string
	OrgStudyID      string
	SecondaryIDs    []string
}

// GetStudy fetches a single study by NCT ID.
func (c *Client) GetStudy(ctx context.Context, nctID string) (*Study, error) {
	var payload studyPayload
	if err := c.getJSON(ctx, c.baseURL+"/studies/"+url.PathEscape(nctID), &payload); err != nil {
		return nil, fmt.Errorf("fetch study %s: %w", nctID, err)
	}
	return payload.toStudy(), nil
}

// SearchStudies pages through all studies matching a free-text query.
func (c *Client) SearchStudies(ctx context.Context, query string) ([]*Study, error) {
	var out []*Study
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("query.term", query)
		params.Set("pageSize", fmt.Sprintf("%d", defaultPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var payload searchPayload
		if err := c.getJSON(ctx, c.baseURL+"/studies?"+params.Encode(), &payload); err != nil {
			return nil, fmt.Errorf("search studies %q: %w", query, err)
		}
		for i := range payload.Studies {
			out = append(out, payload.Studies[i].toStudy())
		}

		c.logger.Debug().
			Str("query", query).
			Int("page", page).
			Int("fetched", len(out)).
			Msg("registry search page")

		if payload.NextPageToken == "" {
			break
		}
		pageToken = payload.NextPageToken
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// Wire format of the v2 API, reduced to the modules the importer reads.

type searchPayload struct {
	Studies       []studyPayload `json:"studies"`
	NextPageToken string         `json:"nextPageToken"`
}

type studyPayload struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID          string `json:"nctId"`
			OfficialTitle  string `json:"officialTitle"`
			BriefTitle     string `json:"briefTitle"`
			OrgStudyIDInfo struct {
				ID string `json:"id"`
			} `json:"orgStudyIdInfo"`
			SecondaryIDInfos []struct {
				ID string `json:"id"`
			} `json:"secondaryIdInfos"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus   string `json:"overallStatus"`
			StartDateStruct struct {
				Date string `json:"date"`
			} `json:"startDateStruct"`
			CompletionDateStruct struct {
				Date string `json:"date"`
			} `json:"completionDateStruct"`
		} `json:"statusModule"`
		DescriptionModule struct {
			BriefSummary        string `json:"briefSummary"`
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		DesignModule struct {
			Phases []string `json:"phases"`
		} `json:"designModule"`
		EligibilityModule struct {
			EligibilityCriteria string `json:"eligibilityCriteria"`
			Sex                 string `json:"sex"`
			MinimumAge          string `json:"minimumAge"`
			MaximumAge          string `json:"maximumAge"`
		} `json:"eligibilityModule"`
		SponsorCollaboratorsModule struct {
			LeadSponsor struct {
				Name string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
		ContactsLocationsModule struct {
			Locations []struct {
				Facility string `json:"facility"`
			} `json:"locations"`
		} `json:"contactsLocationsModule"`
	} `json:"protocolSection"`
}

func (p *studyPayload) toStudy() *Study {
	ps := &p.ProtocolSection

	title := ps.IdentificationModule.OfficialTitle
	if title == "" {
		title = ps.IdentificationModule.BriefTitle
	}

	phase := strings.Join(ps.DesignModule.Phases, ", ")
	if phase == "" || phase == "NA" {
		phase = "Not Applicable"
	}

	description := ps.DescriptionModule.DetailedDescription
	if description == "" {
		description = ps.DescriptionModule.BriefSummary
	}

	var locations []string
	for _, l := range ps.ContactsLocationsModule.Locations {
		if l.Facility != "" {
			locations = append(locations, l.Facility)
		}
	}
	var secondary []string
	for _, s := range ps.IdentificationModule.SecondaryIDInfos {
		if s.ID != "" {
			secondary = append(secondary, s.ID)
		}
	}

	return &Study{
		NCTID:           ps.IdentificationModule.NCTID,
		Title:           title,
		Phase:           phase,
		Description:     description,
		EligibilityText: ps.EligibilityModule.EligibilityCriteria,
		Status:          ps.StatusModule.OverallStatus,
		StartDate:       ps.StatusModule.StartDateStruct.Date,
		CompletionDate:  ps.StatusModule.CompletionDateStruct.Date,
		Sponsor:         ps.SponsorCollaboratorsModule.LeadSponsor.Name,
		Locations:       locations,
		MinimumAge:      ps.EligibilityModule.MinimumAge,
		MaximumAge:      ps.EligibilityModule.MaximumAge,
		Sex:             ps.EligibilityModule.Sex,
		OrgStudyID:      ps.IdentificationModule.OrgStudyIDInfo.ID,
		SecondaryIDs:    secondary,
	}
}
