package registry

import (
	"net/http"
	"time"

	"github.com/relaygate/relaygate/internal/domain"
)

// endpoints is the compiled descriptor table covering the provider's REST
// surface. Keys follow the "category.action" convention the provider uses
// in its own docs. Only GET endpoints carry Cacheable; the dispatcher
// enforces method safety independently.
var endpoints = []EndpointDescriptor{
	// --- Instance lifecycle ---
	{Key: "instance.create", PathTemplate: "/instance/create", Method: http.MethodPost,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1},
	{Key: "instance.connect", PathTemplate: "/instance/connect/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true},
	{Key: "instance.connectionState", PathTemplate: "/instance/connectionState/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 10 * time.Second},
	{Key: "instance.restart", PathTemplate: "/instance/restart/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true},
	{Key: "instance.logout", PathTemplate: "/instance/logout/{instance}", Method: http.MethodDelete,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true},
	{Key: "instance.delete", PathTemplate: "/instance/delete/{instance}", Method: http.MethodDelete,
		QuotaType: domain.QuotaInstances, QuotaWeight: 2, RequiresInstance: true},
	{Key: "instance.fetchInstances", PathTemplate: "/instance/fetchInstances", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1,
		Cacheable: true, CacheTTL: 30 * time.Second},
	{Key: "instance.setPresence", PathTemplate: "/instance/setPresence/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true},

	// --- Messages ---
	{Key: "message.sendText", PathTemplate: "/message/sendText/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendMedia", PathTemplate: "/message/sendMedia/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMedia, QuotaWeight: 2, RequiresInstance: true},
	{Key: "message.sendAudio", PathTemplate: "/message/sendWhatsAppAudio/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMedia, QuotaWeight: 2, RequiresInstance: true},
	{Key: "message.sendSticker", PathTemplate: "/message/sendSticker/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMedia, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendLocation", PathTemplate: "/message/sendLocation/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendContact", PathTemplate: "/message/sendContact/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendReaction", PathTemplate: "/message/sendReaction/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendPoll", PathTemplate: "/message/sendPoll/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendList", PathTemplate: "/message/sendList/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.sendStatus", PathTemplate: "/message/sendStatus/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 2, RequiresInstance: true},
	{Key: "message.markAsRead", PathTemplate: "/chat/markMessageAsRead/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.delete", PathTemplate: "/chat/deleteMessageForEveryone/{instance}", Method: http.MethodDelete,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},
	{Key: "message.updateText", PathTemplate: "/chat/updateMessage/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},

	// --- Chats ---
	{Key: "chat.fetchChats", PathTemplate: "/chat/findChats/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 30 * time.Second},
	{Key: "chat.fetchMessages", PathTemplate: "/chat/findMessages/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 15 * time.Second},
	{Key: "chat.fetchStatusMessage", PathTemplate: "/chat/findStatusMessage/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 30 * time.Second},
	{Key: "chat.checkNumber", PathTemplate: "/chat/whatsappNumbers/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},
	{Key: "chat.archive", PathTemplate: "/chat/archiveChat/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},
	{Key: "chat.setPresence", PathTemplate: "/chat/sendPresence/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},
	{Key: "chat.fetchProfilePicture", PathTemplate: "/chat/fetchProfilePictureUrl/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},

	// --- Contacts ---
	{Key: "contact.fetchContacts", PathTemplate: "/chat/findContacts/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},
	{Key: "contact.block", PathTemplate: "/message/updateBlockStatus/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},

	// --- Groups ---
	{Key: "group.create", PathTemplate: "/group/create/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.fetchAll", PathTemplate: "/group/fetchAllGroups/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},
	{Key: "group.fetchInfo", PathTemplate: "/group/findGroupInfos/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 30 * time.Second},
	{Key: "group.fetchParticipants", PathTemplate: "/group/participants/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 30 * time.Second},
	{Key: "group.fetchInviteCode", PathTemplate: "/group/inviteCode/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.revokeInviteCode", PathTemplate: "/group/revokeInviteCode/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.updateSubject", PathTemplate: "/group/updateGroupSubject/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.updateDescription", PathTemplate: "/group/updateGroupDescription/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.updatePicture", PathTemplate: "/group/updateGroupPicture/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.updateParticipant", PathTemplate: "/group/updateParticipant/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.updateSetting", PathTemplate: "/group/updateSetting/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.join", PathTemplate: "/group/joinGroup/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.leave", PathTemplate: "/group/leaveGroup/{instance}", Method: http.MethodDelete,
		QuotaType: domain.QuotaGroups, QuotaWeight: 1, RequiresInstance: true},
	{Key: "group.sendInvite", PathTemplate: "/group/sendInvite/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaMessages, QuotaWeight: 1, RequiresInstance: true},

	// --- Profile ---
	{Key: "profile.fetchProfile", PathTemplate: "/chat/fetchProfile/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.fetchBusinessProfile", PathTemplate: "/chat/fetchBusinessProfile/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.updateName", PathTemplate: "/chat/updateProfileName/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.updateStatus", PathTemplate: "/chat/updateProfileStatus/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.updatePicture", PathTemplate: "/chat/updateProfilePicture/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.removePicture", PathTemplate: "/chat/removeProfilePicture/{instance}", Method: http.MethodDelete,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},
	{Key: "profile.fetchPrivacySettings", PathTemplate: "/chat/fetchPrivacySettings/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},
	{Key: "profile.updatePrivacySettings", PathTemplate: "/chat/updatePrivacySettings/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaProfile, QuotaWeight: 1, RequiresInstance: true},

	// --- Labels ---
	{Key: "label.fetchLabels", PathTemplate: "/label/findLabels/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},
	{Key: "label.handleLabel", PathTemplate: "/label/handleLabel/{instance}", Method: http.MethodPut,
		QuotaType: domain.QuotaReads, QuotaWeight: 1, RequiresInstance: true},

	// --- Webhooks ---
	{Key: "webhook.set", PathTemplate: "/webhook/set/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaWebhooks, QuotaWeight: 1, RequiresInstance: true},
	{Key: "webhook.fetch", PathTemplate: "/webhook/find/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaWebhooks, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},

	// --- Settings ---
	{Key: "settings.set", PathTemplate: "/settings/set/{instance}", Method: http.MethodPost,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true},
	{Key: "settings.fetch", PathTemplate: "/settings/find/{instance}", Method: http.MethodGet,
		QuotaType: domain.QuotaInstances, QuotaWeight: 1, RequiresInstance: true,
		Cacheable: true, CacheTTL: 60 * time.Second},
}
