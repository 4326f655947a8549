package alert

import "fmt"

// Messages is one escalation's rendered notification text per channel.
type Messages struct {
	SMS      string
	WhatsApp string
	Voice    string
}

// RenderMessages builds the customer-facing alert text in the session
// language. Hinglish sessions get English templates; alerts are formal.
func RenderMessages(language, name string, score int, incidentNumber string) Messages {
	if name == "" {
		name = "Customer"
	}
	if incidentNumber == "" {
		incidentNumber = "N/A"
	}

	switch language {
	case "hindi":
		return Messages{
			SMS: fmt.Sprintf("SecureBank फ्रॉड अलर्ट\n\nप्रिय %s,\n\nआपके खाते पर संदिग्ध गतिविधि पाई गई।\n"+
				"रिस्क स्कोर: %d/100\nइंसीडेंट: %s\n\nखाता अस्थायी रूप से सुरक्षित किया गया है और "+
				"फ्रॉड जांच टीम को सूचित किया गया है।\n\nOTP, PIN या पासवर्ड किसी से शेयर न करें।\n"+
				"कॉल करें: 1800-XXX-XXXX\n— SecureBank सुरक्षा टीम", name, score, incidentNumber),
			WhatsApp: fmt.Sprintf("*SecureBank फ्रॉड अलर्ट*\n\nप्रिय *%s*,\n\nआपके खाते पर संदिग्ध गतिविधि पाई गई है।\n\n"+
				"*रिस्क स्कोर:* %d/100\n*इंसीडेंट:* %s\n\nखाता अस्थायी रूप से सुरक्षित किया गया और फ्रॉड जांच टीम को "+
				"सूचित किया गया।\n\n*OTP, PIN या पासवर्ड किसी से शेयर न करें।*\n\n— SecureBank सुरक्षा टीम",
				name, score, incidentNumber),
			Voice: fmt.Sprintf("सिक्योरबैंक से अलर्ट। प्रिय %s, आपके खाते पर संदिग्ध गतिविधि पाई गई है। "+
				"आपका रिस्क स्कोर 100 में से %d है। इंसीडेंट नंबर %s बनाया गया है। "+
				"कृपया अपना OTP, PIN या पासवर्ड किसी से शेयर न करें।", name, score, incidentNumber),
		}
	case "marathi":
		return Messages{
			SMS: fmt.Sprintf("SecureBank फसवणूक अलर्ट\n\nप्रिय %s,\n\nतुमच्या खात्यावर संशयास्पद हालचाल आढळली.\n"+
				"रिस्क स्कोर: %d/100\nइन्सिडंट: %s\n\nखाते तात्पुरते सुरक्षित केले आहे आणि फसवणूक तपास "+
				"टीमला सूचित केले आहे.\n\nOTP, PIN किंवा पासवर्ड कोणालाही सांगू नका.\n"+
				"कॉल करा: 1800-XXX-XXXX\n— SecureBank सुरक्षा टीम", name, score, incidentNumber),
			WhatsApp: fmt.Sprintf("*SecureBank फसवणूक अलर्ट*\n\nप्रिय *%s*,\n\nतुमच्या खात्यावर संशयास्पद हालचाल "+
				"आढळली आहे.\n\n*रिस्क स्कोर:* %d/100\n*इन्सिडंट:* %s\n\nखाते तात्पुरते सुरक्षित केले आणि फसवणूक "+
				"तपास टीमला सूचित केले.\n\n*OTP, PIN किंवा पासवर्ड कोणालाही सांगू नका.*\n\n— SecureBank सुरक्षा टीम",
				name, score, incidentNumber),
			Voice: fmt.Sprintf("सिक्योरबँकचा अलर्ट. प्रिय %s, तुमच्या खात्यावर संशयास्पद हालचाल आढळली आहे. "+
				"तुमचा रिस्क स्कोर 100 पैकी %d आहे. इन्सिडंट नंबर %s तयार केला आहे. "+
				"कृपया तुमचा OTP, PIN किंवा पासवर्ड कोणालाही सांगू नका.", name, score, incidentNumber),
		}
	default:
		return Messages{
			SMS: fmt.Sprintf("SecureBank FRAUD ALERT\n\nDear %s,\n\nSuspicious activity detected on your account.\n"+
				"Risk Score: %d/100\nIncident: %s\n\nYour account has been temporarily secured and the Fraud "+
				"Investigation Team has been alerted.\n\nDO NOT share OTP, PIN or password with anyone.\n"+
				"Call us: 1800-XXX-XXXX\n— SecureBank Security Team", name, score, incidentNumber),
			WhatsApp: fmt.Sprintf("*SecureBank FRAUD ALERT*\n\nDear *%s*,\n\nSuspicious activity has been detected "+
				"on your account.\n\n*Risk Score:* %d/100\n*Incident:* %s\n\nYour account has been temporarily "+
				"secured, the Fraud Investigation Team has been alerted, and SLA monitoring is active.\n\n"+
				"*DO NOT share OTP, PIN, or password with anyone.*\n\nIf you did not initiate this activity, "+
				"reply *HELP* or call *1800-XXX-XXXX* immediately.\n\n— SecureBank Security Team",
				name, score, incidentNumber),
			Voice: fmt.Sprintf("Alert from SecureBank. Dear %s, suspicious activity has been detected on your "+
				"account. Your risk score is %d out of 100. Incident number %s has been created. Your account "+
				"has been temporarily secured. Please do not share your OTP, PIN, or password with anyone. "+
				"If you did not initiate this activity, please contact us immediately at 1800 XXX XXXX.",
				name, score, incidentNumber),
		}
	}
}
