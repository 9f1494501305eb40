package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/safar/farmmarket/internal/market"
	"github.com/safar/farmmarket/internal/models"
	"github.com/safar/farmmarket/internal/store"
	"github.com/shopspring/decimal"
)

type createListingRequest struct {
	CropName      string          `json:"cropName"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	LocationLabel string          `json:"locationLabel"`
}

func (s *Server) createListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	listing, err := s.listings.Create(c.Request.Context(), models.Listing{
		OwnerID:       userID(c),
		CropName:      req.CropName,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		PricePerUnit:  req.PricePerUnit,
		LocationLabel: req.LocationLabel,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

func (s *Server) listOpenListings(c *gin.Context) {
	filter, err := listingFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	listings, err := s.listings.ListOpen(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

func (s *Server) listMyListings(c *gin.Context) {
	listings, err := s.listings.ListByOwner(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

func (s *Server) getListing(c *gin.Context) {
	listing, err := s.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (s *Server) updateListing(c *gin.Context) {
	var upd store.ListingUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.ownedListing(c, id); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.listings.Update(ctx, id, upd); err != nil {
		s.fail(c, err)
		return
	}

	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) deleteListing(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.ownedListing(c, id); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.listings.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// uploadListingImage takes a multipart "file" field.
func (s *Server) uploadListingImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.ownedListing(c, id); err != nil {
		s.fail(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.badRequest(c, "unreadable upload: "+err.Error())
		return
	}
	defer f.Close()

	url, err := s.listings.SetImage(c.Request.Context(), id, filepath.Ext(fh.Filename), fh.Header.Get("Content-Type"), f)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"imageRef": url})
}

func (s *Server) listListingOffers(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.ownedListing(c, id); err != nil {
		s.fail(c, err)
		return
	}

	offers, err := s.offers.ListByListing(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

func (s *Server) ownedListing(c *gin.Context, id string) (*models.Listing, error) {
	listing, err := s.listings.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID(c) {
		return nil, market.ErrForbidden
	}
	return listing, nil
}

func listingFilter(c *gin.Context) (store.ListingFilter, error) {
	filter := store.ListingFilter{Crop: c.Query("crop")}

	for _, bound := range []struct {
		key string
		dst **decimal.Decimal
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	} {
		raw := c.Query(bound.key)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, &store.ValidationError{Field: bound.key, Message: "must be a number"}
		}
		*bound.dst = &v
	}
	return filter, nil
}
