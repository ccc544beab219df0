package config

import "time"

const day = 24 * time.Hour

// Limits bounds user supplied input.  Text limits count characters, byte
// limits count raw upload bytes as received.
type Limits struct {
	MaxImages           int
	MaxImageBytes       int64
	MaxTotalUploadBytes int64
	BrandMax            int
	LocationMax         int
	DescriptionMax      int
	MessageMax          int
	DetailsMax          int
	ContactCooldown     time.Duration
}

// TTL groups the retention windows enforced by the sweeper and the seller
// dashboard extension.
type TTL struct {
	Listing          time.Duration // lifetime of a fresh listing
	Extend           time.Duration // added on dashboard visit
	LoginWindow      time.Duration // minimum gap between two extensions
	ExpiredRetention time.Duration // expired rows kept before hard delete
	Contact          time.Duration
	IPHash           time.Duration
	Report           time.Duration
}

// Quota describes the free tier of the object store and the prices used for
// the advisory cost estimate.
type Quota struct {
	StorageBytes     int64
	ClassAOps        int64
	ClassBOps        int64
	CutoffFraction   float64
	BytesPerGB       int64
	StoragePerGB     float64
	ClassAPerMillion float64
	ClassBPerMillion float64
}

// DefaultLimits returns the limits used when no override is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxImages:           2,
		MaxImageBytes:       1_200_000,
		MaxTotalUploadBytes: 3_000_000,
		BrandMax:            40,
		LocationMax:         25,
		DescriptionMax:      150,
		MessageMax:          300,
		DetailsMax:          300,
		ContactCooldown:     10 * time.Minute,
	}
}

func DefaultTTL() TTL {
	return TTL{
		Listing:          39 * day,
		Extend:           30 * day,
		LoginWindow:      day,
		ExpiredRetention: 30 * day,
		Contact:          30 * day,
		IPHash:           30 * day,
		Report:           365 * day,
	}
}

func DefaultQuota() Quota {
	return Quota{
		StorageBytes:     10 * 1_000_000_000,
		ClassAOps:        1_000_000,
		ClassBOps:        10_000_000,
		CutoffFraction:   0.99,
		BytesPerGB:       1_000_000_000,
		StoragePerGB:     0.015,
		ClassAPerMillion: 4.5,
		ClassBPerMillion: 0.36,
	}
}

// LoadLimits applies LIMIT_* overrides on top of DefaultLimits.
func LoadLimits() Limits {
	d := DefaultLimits()
	return Limits{
		MaxImages:           envInt("LIMIT_MAX_IMAGES", d.MaxImages),
		MaxImageBytes:       envInt64("LIMIT_MAX_IMAGE_BYTES", d.MaxImageBytes),
		MaxTotalUploadBytes: envInt64("LIMIT_MAX_TOTAL_UPLOAD_BYTES", d.MaxTotalUploadBytes),
		BrandMax:            envInt("LIMIT_BRAND_MAX", d.BrandMax),
		LocationMax:         envInt("LIMIT_LOCATION_MAX", d.LocationMax),
		DescriptionMax:      envInt("LIMIT_DESCRIPTION_MAX", d.DescriptionMax),
		MessageMax:          envInt("LIMIT_MESSAGE_MAX", d.MessageMax),
		DetailsMax:          envInt("LIMIT_DETAILS_MAX", d.DetailsMax),
		ContactCooldown:     envDur("LIMIT_CONTACT_COOLDOWN", d.ContactCooldown),
	}
}

// LoadTTL reads TTL_*_DAYS overrides.
func LoadTTL() TTL {
	d := DefaultTTL()
	return TTL{
		Listing:          envDays("TTL_LISTING_DAYS", d.Listing),
		Extend:           envDays("TTL_EXTEND_DAYS", d.Extend),
		LoginWindow:      envDur("TTL_LOGIN_WINDOW", d.LoginWindow),
		ExpiredRetention: envDays("TTL_EXPIRED_RETENTION_DAYS", d.ExpiredRetention),
		Contact:          envDays("TTL_CONTACT_DAYS", d.Contact),
		IPHash:           envDays("TTL_IP_HASH_DAYS", d.IPHash),
		Report:           envDays("TTL_REPORT_DAYS", d.Report),
	}
}

// LoadQuota reads QUOTA_* and PRICE_* overrides.
func LoadQuota() Quota {
	d := DefaultQuota()
	q := Quota{
		StorageBytes:     envInt64("QUOTA_STORAGE_BYTES", d.StorageBytes),
		ClassAOps:        envInt64("QUOTA_CLASS_A_OPS", d.ClassAOps),
		ClassBOps:        envInt64("QUOTA_CLASS_B_OPS", d.ClassBOps),
		CutoffFraction:   envFloat("QUOTA_CUTOFF_FRACTION", d.CutoffFraction),
		BytesPerGB:       d.BytesPerGB,
		StoragePerGB:     envFloat("PRICE_STORAGE_PER_GB", d.StoragePerGB),
		ClassAPerMillion: envFloat("PRICE_CLASS_A_PER_MILLION", d.ClassAPerMillion),
		ClassBPerMillion: envFloat("PRICE_CLASS_B_PER_MILLION", d.ClassBPerMillion),
	}
	if q.CutoffFraction <= 0 || q.CutoffFraction > 1 { q.CutoffFraction = d.CutoffFraction }
	return q
}
