package tapp

import "strings"

// EventAction names an in-app event.
type EventAction struct {
	name   string
	custom bool
}

// Predefined event actions.
var (
	EventAddPaymentInfo       = EventAction{name: "add_payment_info"}
	EventAddToCart            = EventAction{name: "add_to_cart"}
	EventAddToWishlist        = EventAction{name: "add_to_wishlist"}
	EventCompleteRegistration = EventAction{name: "complete_registration"}
	EventContact              = EventAction{name: "contact"}
	EventCustomizeProduct     = EventAction{name: "customize_product"}
	EventDonate               = EventAction{name: "donate"}
	EventFindLocation         = EventAction{name: "find_location"}
	EventInitiateCheckout     = EventAction{name: "initiate_checkout"}
	EventLead                 = EventAction{name: "lead"}
	EventPurchase             = EventAction{name: "purchase"}
	EventSchedule             = EventAction{name: "schedule"}
	EventSearch               = EventAction{name: "search"}
	EventStartTrial           = EventAction{name: "start_trial"}
	EventSubmitApplication    = EventAction{name: "submit_application"}
	EventSubscribe            = EventAction{name: "subscribe"}
	EventViewContent          = EventAction{name: "view_content"}
	EventClickButton          = EventAction{name: "click_button"}
	EventDownloadFile         = EventAction{name: "download_file"}
	EventJoinGroup            = EventAction{name: "join_group"}
	EventAchieveLevel         = EventAction{name: "achieve_level"}
	EventCreateGroup          = EventAction{name: "create_group"}
	EventCreateRole           = EventAction{name: "create_role"}
	EventLinkClick            = EventAction{name: "link_click"}
	EventLinkImpression       = EventAction{name: "link_impression"}
	EventApplyForLoan         = EventAction{name: "apply_for_loan"}
	EventLoanApproval         = EventAction{name: "loan_approval"}
	EventLoanDisbursal        = EventAction{name: "loan_disbursal"}
	EventLogin                = EventAction{name: "login"}
	EventRate                 = EventAction{name: "rate"}
	EventSpendCredits         = EventAction{name: "spend_credits"}
	EventUnlockAchievement    = EventAction{name: "unlock_achievement"}
	EventAddShippingInfo      = EventAction{name: "add_shipping_info"}
	EventEarnVirtualCurrency  = EventAction{name: "earn_virtual_currency"}
	EventStartLevel           = EventAction{name: "start_level"}
	EventCompleteLevel        = EventAction{name: "complete_level"}
	EventPostScore            = EventAction{name: "post_score"}
	EventSelectContent        = EventAction{name: "select_content"}
	EventBeginTutorial        = EventAction{name: "begin_tutorial"}
	EventCompleteTutorial     = EventAction{name: "complete_tutorial"}
)

var predefinedEvents = []EventAction{
	EventAddPaymentInfo, EventAddToCart, EventAddToWishlist, EventCompleteRegistration,
	EventContact, EventCustomizeProduct, EventDonate, EventFindLocation,
	EventInitiateCheckout, EventLead, EventPurchase, EventSchedule,
	EventSearch, EventStartTrial, EventSubmitApplication, EventSubscribe,
	EventViewContent, EventClickButton, EventDownloadFile, EventJoinGroup,
	EventAchieveLevel, EventCreateGroup, EventCreateRole, EventLinkClick,
	EventLinkImpression, EventApplyForLoan, EventLoanApproval, EventLoanDisbursal,
	EventLogin, EventRate, EventSpendCredits, EventUnlockAchievement,
	EventAddShippingInfo, EventEarnVirtualCurrency, EventStartLevel, EventCompleteLevel,
	EventPostScore, EventSelectContent, EventBeginTutorial, EventCompleteTutorial,
}

// CustomEvent returns an action with a host-defined name.
func CustomEvent(name string) EventAction {
	return EventAction{name: name, custom: true}
}

// ParseEventAction maps a name to a predefined action, falling back to a
// custom one.
func ParseEventAction(name string) EventAction {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, action := range predefinedEvents {
		if action.name == key {
			return action
		}
	}
	return CustomEvent(name)
}

// Name is the name sent to the service.
func (a EventAction) Name() string {
	return a.name
}

// IsCustom reports whether a is not one of the predefined actions.
func (a EventAction) IsCustom() bool {
	return a.custom
}

// IsValid reports whether a has a name.
func (a EventAction) IsValid() bool {
	return strings.TrimSpace(a.name) != ""
}

// String implements fmt.Stringer.
func (a EventAction) String() string {
	return a.name
}

// Event is an in-app event reported to the tapp affiliate.
type Event struct {
	Action EventAction
}
