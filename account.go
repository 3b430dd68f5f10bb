package voicelink

import "github.com/voicelink/voicelink/docstore"

// Collection names in the document store.
const (
	collectionAccounts = "accounts"
	collectionMessages = "messages"
	collectionReports  = "reports"
)

// Account document field names.
const (
	fieldEmail              = "email"
	fieldName               = "name"
	fieldPhotoURL           = "photo_url"
	fieldBio                = "bio"
	fieldBioSoundURL        = "bio_sound_url"
	fieldInterests          = "interests"
	fieldHobbies            = "hobbies"
	fieldFollowers          = "followers"
	fieldFollowing          = "following"
	fieldOnboardingComplete = "onboarding_complete"
	fieldRole               = "role"
	fieldLoginAttempts      = "login_attempts"
	fieldBlocked            = "is_blocked"
)

// LockThreshold is the number of recorded login failures after which an
// account locks. A locked account stays locked until AdminUnlock.
const LockThreshold = 3

// Account is a user profile with its lockout state.
type Account struct {
	// ID is the account identifier (document key).
	ID string

	// Email is the unique lookup key for login flows.
	Email string

	// Name is the display name.
	Name string

	// PhotoURL points at the profile picture, if any.
	PhotoURL string

	// Bio is the free-text profile description.
	Bio string

	// BioSoundURL references a recorded voice introduction.
	BioSoundURL string

	// Interests and Hobbies are free-form profile tags.
	Interests []string
	Hobbies   []string

	// Followers and Following hold account IDs of the social graph edges.
	Followers []string
	Following []string

	// OnboardingComplete is set once the initial profile flow finishes.
	OnboardingComplete bool

	// Role is the access role, e.g. "user" or "admin".
	Role string

	// LoginAttempts counts consecutive failed logins. Never negative,
	// never exceeds LockThreshold.
	LoginAttempts int

	// Blocked reports whether the account is locked out.
	// Set automatically once LoginAttempts reaches LockThreshold; cleared
	// only by AdminUnlock.
	Blocked bool
}

// Locked reports whether the account is locked out of login.
func (a Account) Locked() bool {
	return a.Blocked
}

// accountFromDocument is the single place account documents are decoded.
// Missing fields default to the zero value.
func accountFromDocument(doc docstore.Document) Account {
	return Account{
		ID:                 doc.Key,
		Email:              doc.GetString(fieldEmail),
		Name:               doc.GetString(fieldName),
		PhotoURL:           doc.GetString(fieldPhotoURL),
		Bio:                doc.GetString(fieldBio),
		BioSoundURL:        doc.GetString(fieldBioSoundURL),
		Interests:          doc.GetStringSlice(fieldInterests),
		Hobbies:            doc.GetStringSlice(fieldHobbies),
		Followers:          doc.GetStringSlice(fieldFollowers),
		Following:          doc.GetStringSlice(fieldFollowing),
		OnboardingComplete: doc.GetBool(fieldOnboardingComplete),
		Role:               doc.GetString(fieldRole),
		LoginAttempts:      int(doc.GetInt64(fieldLoginAttempts)),
		Blocked:            doc.GetBool(fieldBlocked),
	}
}

// fields is the single place account documents are encoded.
func (a Account) fields() map[string]any {
	return map[string]any{
		fieldEmail:              a.Email,
		fieldName:               a.Name,
		fieldPhotoURL:           a.PhotoURL,
		fieldBio:                a.Bio,
		fieldBioSoundURL:        a.BioSoundURL,
		fieldInterests:          a.Interests,
		fieldHobbies:            a.Hobbies,
		fieldFollowers:          a.Followers,
		fieldFollowing:          a.Following,
		fieldOnboardingComplete: a.OnboardingComplete,
		fieldRole:               a.Role,
		fieldLoginAttempts:      a.LoginAttempts,
		fieldBlocked:            a.Blocked,
	}
}
