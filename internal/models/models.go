package models

import "time"

// Placeholder pickup coordinates used when a donation is posted without a
// geocoded location.
const (
	DefaultLocationLat = 24.8607
	DefaultLocationLng = 67.0011
)

// FoodTypes is the preset list offered when posting a donation.
var FoodTypes = []string{
	"Fresh Produce",
	"Fruits",
	"Vegetables",
	"Beverages",
	"Dairy",
	"Meat",
	"Baked Goods",
	"Canned Goods",
	"Other",
}

// IsFoodType reports whether value is one of the preset food types.
func IsFoodType(value string) bool {
	for _, ft := range FoodTypes {
		if ft == value {
			return true
		}
	}
	return false
}

// IdentityMetadata is the free-form data captured at sign-up.
type IdentityMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Identity is an authenticated principal as issued by the auth boundary.
type Identity struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata IdentityMetadata `json:"metadata"`
}

// UserProfile is the application-level profile of an identity
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Address     *string   `json:"address,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	PushToken   *string   `json:"push_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdate carries the profile fields a user may edit. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=120"`
	Role        *Role   `json:"role,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=40"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=300"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	PushToken   *string `json:"push_token,omitempty" validate:"omitempty,max=200"`
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Role == nil && u.PhoneNumber == nil &&
		u.Address == nil && u.AvatarURL == nil && u.PushToken == nil
}

// Viewer is the caller a view or aggregate is derived for.
type Viewer struct {
	ID   string
	Role Role
	Name string
}

// ViewerOf returns the viewer for a profile.
func ViewerOf(p *UserProfile) Viewer {
	if p == nil {
		return Viewer{}
	}
	return Viewer{ID: p.ID, Role: p.Role, Name: p.FullName}
}

// Donation is a surplus food offer and its delivery state.
type Donation struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	FoodType        string    `json:"food_type"`
	FoodQuantity    int       `json:"food_quantity"`
	FoodWeight      string    `json:"food_weight"`
	ExpirationDate  string    `json:"expiration_date"`
	PickupDateTime  string    `json:"pickup_date_time"`
	DonorID         string    `json:"donor_id"`
	DonorName       string    `json:"donor_name"`
	Status          Status    `json:"status"`
	VolunteerID     *string   `json:"volunteer_id,omitempty"`
	VolunteerName   *string   `json:"volunteer_name,omitempty"`
	RecipientID     *string   `json:"recipient_id,omitempty"`
	RecipientName   *string   `json:"recipient_name,omitempty"`
	LocationLat     float64   `json:"location_lat"`
	LocationLng     float64   `json:"location_lng"`
	LocationAddress string    `json:"location_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AssignedTo reports whether the donation is assigned to the given volunteer.
func (d *Donation) AssignedTo(userID string) bool {
	return d != nil && d.VolunteerID != nil && userID != "" && *d.VolunteerID == userID
}

// Clone returns a deep copy of the donation.
func (d *Donation) Clone() *Donation {
	if d == nil {
		return nil
	}
	c := *d
	c.VolunteerID = cloneString(d.VolunteerID)
	c.VolunteerName = cloneString(d.VolunteerName)
	c.RecipientID = cloneString(d.RecipientID)
	c.RecipientName = cloneString(d.RecipientName)
	return &c
}

// Equal reports whether both records hold the same values.
func (d *Donation) Equal(o *Donation) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.ID == o.ID && d.Title == o.Title && d.Description == o.Description &&
		d.FoodType == o.FoodType && d.FoodQuantity == o.FoodQuantity && d.FoodWeight == o.FoodWeight &&
		d.ExpirationDate == o.ExpirationDate && d.PickupDateTime == o.PickupDateTime &&
		d.DonorID == o.DonorID && d.DonorName == o.DonorName && d.Status == o.Status &&
		equalString(d.VolunteerID, o.VolunteerID) && equalString(d.VolunteerName, o.VolunteerName) &&
		equalString(d.RecipientID, o.RecipientID) && equalString(d.RecipientName, o.RecipientName) &&
		d.LocationLat == o.LocationLat && d.LocationLng == o.LocationLng && d.LocationAddress == o.LocationAddress &&
		d.CreatedAt.Equal(o.CreatedAt) && d.UpdatedAt.Equal(o.UpdatedAt)
}

// DonationInput is what a donor submits when posting a donation.
type DonationInput struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"required,max=2000"`
	FoodType        string   `json:"food_type" validate:"required"`
	FoodQuantity    int      `json:"food_quantity"`
	FoodWeight      string   `json:"food_weight" validate:"required,max=50"`
	ExpirationDate  string   `json:"expiration_date" validate:"required"`
	PickupDateTime  string   `json:"pickup_date_time" validate:"required"`
	LocationAddress string   `json:"location_address" validate:"required,max=300"`
	LocationLat     *float64 `json:"location_lat,omitempty" validate:"omitempty,latitude"`
	LocationLng     *float64 `json:"location_lng,omitempty" validate:"omitempty,longitude"`
}

// StatusPatch is a partial status/assignment update. ExpectStatus, when set,
// makes the update conditional on the stored status.
type StatusPatch struct {
	Status        *Status
	VolunteerID   *string
	VolunteerName *string
	RecipientID   *string
	RecipientName *string
	ExpectStatus  *Status
}

// DonationEvent is a single change delivered by the donation feed. Old is
// populated for deletes.
type DonationEvent struct {
	Op     EventOp   `json:"op"`
	Record *Donation `json:"record,omitempty"`
	Old    *Donation `json:"old,omitempty"`
}

// ID returns the id of the affected donation.
func (e DonationEvent) ID() string {
	if e.Record != nil {
		return e.Record.ID
	}
	if e.Old != nil {
		return e.Old.ID
	}
	return ""
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// StatusPtr returns a pointer to s.
func StatusPtr(s Status) *Status {
	return &s
}
